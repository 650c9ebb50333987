package rental

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/RentalCars/RentalCars/internal/calendar"
	"github.com/RentalCars/RentalCars/internal/renter"
	"github.com/RentalCars/RentalCars/internal/vehicle"
)

// ---- 内存版协作方，契约与 GORM 实现一致 ----

type memCatalog struct {
	mu       sync.Mutex
	vehicles map[uint]vehicle.Vehicle
}

func (c *memCatalog) FindByID(_ context.Context, id uint) (*vehicle.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vehicles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := v
	return &out, nil
}

func (c *memCatalog) setAvailable(id uint, available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.vehicles[id]
	v.Available = available
	c.vehicles[id] = v
}

func (c *memCatalog) available(id uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vehicles[id].Available
}

type memDirectory struct {
	renters map[uint]renter.Renter
}

func (d *memDirectory) FindByID(_ context.Context, id uint) (*renter.Renter, error) {
	u, ok := d.renters[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := u
	return &out, nil
}

// memStore 模拟事务语义：Create/Delete 要么全部生效要么全部不生效。
type memStore struct {
	mu      sync.Mutex
	rentals map[uint]Rental
	nextID  uint

	catalog   *memCatalog
	directory *memDirectory

	overlapErr error // 注入可用性查询的存储层故障
	createErr  error // 注入写入故障
}

func newMemStore(c *memCatalog, d *memDirectory) *memStore {
	return &memStore{rentals: make(map[uint]Rental), nextID: 1, catalog: c, directory: d}
}

func (st *memStore) hasOverlapLocked(vehicleID uint, start, end calendar.Date, excludeID uint) bool {
	for _, r := range st.rentals {
		if r.VehicleID != vehicleID || r.ID == excludeID {
			continue
		}
		if Overlaps(r.StartDate, r.EndDate, start, end) {
			return true
		}
	}
	return false
}

func (st *memStore) HasOverlap(_ context.Context, vehicleID uint, start, end calendar.Date, excludeID uint) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.overlapErr != nil {
		return false, st.overlapErr
	}
	return st.hasOverlapLocked(vehicleID, start, end, excludeID), nil
}

func (st *memStore) Create(_ context.Context, r *Rental) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.createErr != nil {
		return st.createErr
	}
	if _, err := st.catalog.FindByID(context.Background(), r.VehicleID); err != nil {
		return ErrVehicleNotFound
	}
	if st.hasOverlapLocked(r.VehicleID, r.StartDate, r.EndDate, 0) {
		return ErrVehicleUnavailable
	}
	r.ID = st.nextID
	st.nextID++
	st.rentals[r.ID] = *r
	st.catalog.setAvailable(r.VehicleID, false)
	return nil
}

func (st *memStore) Save(_ context.Context, r *Rental) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.rentals[r.ID]; !ok {
		return ErrRentalNotFound
	}
	// 与 GORM 实现同契约：写入前在锁内复核重叠（排除自身）。
	if st.hasOverlapLocked(r.VehicleID, r.StartDate, r.EndDate, r.ID) {
		return ErrVehicleUnavailable
	}
	st.rentals[r.ID] = *r
	return nil
}

func (st *memStore) Delete(_ context.Context, id uint) (*Rental, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	r, ok := st.rentals[id]
	if !ok {
		return nil, ErrRentalNotFound
	}
	delete(st.rentals, id)
	st.catalog.setAvailable(r.VehicleID, true)
	return &r, nil
}

func (st *memStore) FindByID(_ context.Context, id uint) (*Rental, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	r, ok := st.rentals[id]
	if !ok {
		return nil, ErrRentalNotFound
	}
	if v, err := st.catalog.FindByID(context.Background(), r.VehicleID); err == nil {
		r.Vehicle = *v
	}
	if u, err := st.directory.FindByID(context.Background(), r.RenterID); err == nil {
		r.Renter = *u
	}
	return &r, nil
}

func (st *memStore) List(_ context.Context) ([]Rental, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Rental, 0, len(st.rentals))
	for _, r := range st.rentals {
		out = append(out, r)
	}
	return out, nil
}

func (st *memStore) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.rentals)
}

// assertNoOverlapInvariant 任意操作序列之后都必须成立的全局不变量。
func (st *memStore) assertNoOverlapInvariant(t interface{ Errorf(string, ...interface{}) }) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, a := range st.rentals {
		for _, b := range st.rentals {
			if a.ID >= b.ID || a.VehicleID != b.VehicleID {
				continue
			}
			if Overlaps(a.StartDate, a.EndDate, b.StartDate, b.EndDate) {
				t.Errorf("rentals %d and %d overlap on vehicle %d", a.ID, b.ID, a.VehicleID)
			}
		}
	}
}

type eventRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (e *eventRecorder) PublishJSON(_ context.Context, key string, _ any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = append(e.keys, key)
	return nil
}

// ---- 用例 ----

type BookingSuite struct {
	suite.Suite
	catalog   *memCatalog
	directory *memDirectory
	store     *memStore
	events    *eventRecorder
	svc       *Service
	ctx       context.Context
}

func (s *BookingSuite) SetupTest() {
	s.catalog = &memCatalog{vehicles: map[uint]vehicle.Vehicle{
		1: {ID: 1, Brand: "Toyota", Model: "Corolla", Year: 2023, Color: "Blanco", DailyRate: 5000, Available: true},
		2: {ID: 2, Brand: "Fiat", Model: "Cronos", Year: 2022, Color: "Rojo", DailyRate: 3000, Available: true},
	}}
	s.directory = &memDirectory{renters: map[uint]renter.Renter{
		1: {ID: 1, Name: "Ana", Email: "ana@example.com"},
		2: {ID: 2, Name: "Bruno", Email: "bruno@example.com"},
	}}
	s.store = newMemStore(s.catalog, s.directory)
	s.events = &eventRecorder{}
	s.svc = NewService(s.store, s.catalog, s.directory, s.events, nil)
	s.ctx = context.Background()
}

func (s *BookingSuite) TestCreateComputesPriceAndClaimsVehicle() {
	r, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)
	s.NotZero(r.ID)
	s.Equal(20000.00, r.Price) // 4 天 * 5000
	s.False(s.catalog.available(1))
	s.Contains(s.events.keys, "rental.created")
	s.store.assertNoOverlapInvariant(s.T())
}

func (s *BookingSuite) TestCreateConflictFails() {
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)

	_, err = s.svc.Create(s.ctx, Input{RenterID: 2, VehicleID: 1, StartDate: "2025-10-03", EndDate: "2025-10-04"})
	s.ErrorIs(err, ErrVehicleUnavailable)
	s.Equal(1, s.store.count())
	s.store.assertNoOverlapInvariant(s.T())
}

func (s *BookingSuite) TestBoundaryDayConflicts() {
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)

	// 闭区间语义：共享端点的区间也算重叠
	_, err = s.svc.Create(s.ctx, Input{RenterID: 2, VehicleID: 1, StartDate: "2025-10-05", EndDate: "2025-10-08"})
	s.ErrorIs(err, ErrVehicleUnavailable)
}

func (s *BookingSuite) TestUpdateExcludesSelf() {
	r, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)

	updated, err := s.svc.Update(s.ctx, r.ID, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-06"})
	s.NoError(err)
	s.Equal(25000.00, updated.Price) // 5 天 * 5000
	s.Equal("2025-10-06", updated.EndDate.String())
	s.False(s.catalog.available(1)) // 全量更新不重置占用标记
	s.store.assertNoOverlapInvariant(s.T())
}

func (s *BookingSuite) TestDeleteReleasesVehicle() {
	r, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)

	_, err = s.svc.Delete(s.ctx, r.ID)
	s.NoError(err)
	s.True(s.catalog.available(1))
	s.Contains(s.events.keys, "rental.deleted")

	// 释放后同区间可以再次预订
	_, err = s.svc.Create(s.ctx, Input{RenterID: 2, VehicleID: 1, StartDate: "2025-10-02", EndDate: "2025-10-04"})
	s.NoError(err)
}

func (s *BookingSuite) TestDeleteMissingLeavesVehicleAlone() {
	s.catalog.setAvailable(1, false)
	_, err := s.svc.Delete(s.ctx, 99)
	s.ErrorIs(err, ErrRentalNotFound)
	s.False(s.catalog.available(1))
}

func (s *BookingSuite) TestInvalidRangeWritesNothing() {
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-05", EndDate: "2025-10-01"})
	s.ErrorIs(err, ErrInvalidDateRange)
	s.Equal(0, s.store.count())
	s.True(s.catalog.available(1))
}

func (s *BookingSuite) TestSameDayRangeRejected() {
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-01"})
	s.ErrorIs(err, ErrInvalidDateRange)
}

func (s *BookingSuite) TestUnparseableDateRejected() {
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "soon", EndDate: "2025-10-05"})
	s.ErrorIs(err, ErrInvalidDateFormat)
	s.Equal(0, s.store.count())
}

func (s *BookingSuite) TestMissingVehicleAndRenter() {
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 42, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.ErrorIs(err, ErrVehicleNotFound)

	_, err = s.svc.Create(s.ctx, Input{RenterID: 42, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.ErrorIs(err, ErrRenterNotFound)
}

func (s *BookingSuite) TestStorageFailureIsNotUnavailability() {
	s.store.overlapErr = fmt.Errorf("connection reset")
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.ErrorIs(err, ErrAvailabilityCheck)
	s.False(errors.Is(err, ErrVehicleUnavailable))

	_, err = s.svc.CheckAvailability(s.ctx, 1, "2025-10-01", "2025-10-05", 0)
	s.ErrorIs(err, ErrAvailabilityCheck)
}

func (s *BookingSuite) TestCreateFailureSurfacesAsPersistence() {
	s.store.createErr = fmt.Errorf("deadlock")
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.ErrorIs(err, ErrPersistence)
	s.Equal(0, s.store.count())
	s.True(s.catalog.available(1))
}

func (s *BookingSuite) TestPatchMergesAndReprices() {
	r, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)

	end := "2025-10-07"
	patched, err := s.svc.Patch(s.ctx, r.ID, PatchInput{EndDate: &end})
	s.NoError(err)
	s.Equal("2025-10-01", patched.StartDate.String()) // 未提供的字段保持现值
	s.Equal(uint(1), patched.RenterID)
	s.Equal(30000.00, patched.Price) // 日期变化触发重新计价

	// 只换租客不重新计价
	other := uint(2)
	patched, err = s.svc.Patch(s.ctx, r.ID, PatchInput{RenterID: &other})
	s.NoError(err)
	s.Equal(uint(2), patched.RenterID)
	s.Equal(30000.00, patched.Price)
}

func (s *BookingSuite) TestPatchSwitchingVehicleReprices() {
	r, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)

	v2 := uint(2)
	patched, err := s.svc.Patch(s.ctx, r.ID, PatchInput{VehicleID: &v2})
	s.NoError(err)
	s.Equal(uint(2), patched.VehicleID)
	s.Equal(12000.00, patched.Price) // 4 天 * 3000
	s.store.assertNoOverlapInvariant(s.T())
}

func (s *BookingSuite) TestPatchInvalidMergedRange() {
	r, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)

	start := "2025-10-09"
	_, err = s.svc.Patch(s.ctx, r.ID, PatchInput{StartDate: &start})
	s.ErrorIs(err, ErrInvalidDateRange)
}

func (s *BookingSuite) TestPriceOutOfRange() {
	s.catalog.vehicles[3] = vehicle.Vehicle{ID: 3, Brand: "Bugatti", Model: "Chiron", Year: 2024, DailyRate: 99999999, Available: true}
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 3, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.ErrorIs(err, ErrPriceOutOfRange)
	s.Equal(0, s.store.count())
}

func (s *BookingSuite) TestCheckAvailabilityIdempotent() {
	_, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)

	for i := 0; i < 5; i++ {
		ok, err := s.svc.CheckAvailability(s.ctx, 1, "2025-10-03", "2025-10-04", 0)
		s.NoError(err)
		s.False(ok)

		ok, err = s.svc.CheckAvailability(s.ctx, 1, "2025-10-06", "2025-10-08", 0)
		s.NoError(err)
		s.True(ok)
	}
}

func (s *BookingSuite) TestCheckAvailabilityExcludeSelf() {
	r, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.NoError(err)

	ok, err := s.svc.CheckAvailability(s.ctx, 1, "2025-10-01", "2025-10-06", r.ID)
	s.NoError(err)
	s.True(ok)
}

func (s *BookingSuite) TestConcurrentCreatesSingleWinner() {
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.Create(s.ctx, Input{
				RenterID:  1,
				VehicleID: 1,
				StartDate: "2025-10-01",
				EndDate:   "2025-10-05",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, ErrVehicleUnavailable)
		}
	}
	s.Equal(1, succeeded)
	s.store.assertNoOverlapInvariant(s.T())
}

func (s *BookingSuite) TestConcurrentUpdatesSingleWinner() {
	// 两个不相交的租约同时改到同一目标区间：
	// 预检都可能对着对方的旧日期通过，落库必须只放行一个。
	r1, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.Require().NoError(err)
	r2, err := s.svc.Create(s.ctx, Input{RenterID: 2, VehicleID: 1, StartDate: "2025-10-10", EndDate: "2025-10-15"})
	s.Require().NoError(err)

	target := Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-20", EndDate: "2025-10-25"}
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uint{r1.ID, r2.ID} {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			in := target
			in.RenterID = uint(i + 1)
			_, errs[i] = s.svc.Update(s.ctx, id, in)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, ErrVehicleUnavailable)
		}
	}
	s.Equal(1, succeeded)
	s.store.assertNoOverlapInvariant(s.T())
}

func (s *BookingSuite) TestSaveRejectsOverlapAtWrite() {
	// 存储层契约：即使调用方跳过预检，写入时也会在锁内复核重叠。
	r1, err := s.svc.Create(s.ctx, Input{RenterID: 1, VehicleID: 1, StartDate: "2025-10-01", EndDate: "2025-10-05"})
	s.Require().NoError(err)
	r2, err := s.svc.Create(s.ctx, Input{RenterID: 2, VehicleID: 1, StartDate: "2025-10-10", EndDate: "2025-10-15"})
	s.Require().NoError(err)

	moved := *r2
	moved.StartDate = r1.StartDate
	moved.EndDate = r1.EndDate
	s.ErrorIs(s.store.Save(s.ctx, &moved), ErrVehicleUnavailable)
	s.store.assertNoOverlapInvariant(s.T())
}

func (s *BookingSuite) TestDisplayFormat() {
	d := calendar.Date{Year: 2025, Month: time.October, Day: 1}
	s.Equal("01/10/2025", d.Display())
}

func TestBookingSuite(t *testing.T) {
	suite.Run(t, new(BookingSuite))
}
