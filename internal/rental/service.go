package rental

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/RentalCars/RentalCars/internal/calendar"
	"github.com/RentalCars/RentalCars/internal/common/logger"
	"github.com/RentalCars/RentalCars/internal/renter"
	"github.com/RentalCars/RentalCars/internal/vehicle"
)

// Store 抽象租约存储。Create/Delete 跨租约与车辆两条记录，
// 全部成功或全部回滚由实现方保证，调用方不感知事务边界。
// Create/Save 都在车辆行锁内复核重叠，冲突时返回 ErrVehicleUnavailable。
type Store interface {
	Create(ctx context.Context, r *Rental) error
	Save(ctx context.Context, r *Rental) error
	Delete(ctx context.Context, id uint) (*Rental, error)
	FindByID(ctx context.Context, id uint) (*Rental, error)
	List(ctx context.Context) ([]Rental, error)
	HasOverlap(ctx context.Context, vehicleID uint, start, end calendar.Date, excludeID uint) (bool, error)
}

// Catalog 车辆目录协作方。未找到时返回 gorm.ErrRecordNotFound。
type Catalog interface {
	FindByID(ctx context.Context, id uint) (*vehicle.Vehicle, error)
}

// Directory 租客目录协作方。未找到时返回 gorm.ErrRecordNotFound。
type Directory interface {
	FindByID(ctx context.Context, id uint) (*renter.Renter, error)
}

// EventPublisher 对接消息总线。发布失败不影响主流程。
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Service 封装租约领域的核心用例（不依赖 HTTP），便于复用和测试。
type Service struct {
	store    Store
	vehicles Catalog
	renters  Directory
	events   EventPublisher
	log      logger.Logger
}

func NewService(store Store, vehicles Catalog, renters Directory, events EventPublisher, log logger.Logger) *Service {
	return &Service{store: store, vehicles: vehicles, renters: renters, events: events, log: log}
}

// Input 创建/全量更新租约的入参。
type Input struct {
	RenterID  uint   `json:"renterId"`
	VehicleID uint   `json:"vehicleId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// PatchInput 部分更新的入参：可修改字段静态枚举，未提供的字段保持现值。
// 车辆 available 和任何“状态”字段都不在集合内，无法经由此路径改写。
type PatchInput struct {
	RenterID  *uint   `json:"renterId"`
	VehicleID *uint   `json:"vehicleId"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// parseRange 归一化并校验日期区间：start 必须严格早于 end。
func parseRange(startStr, endStr string) (calendar.Date, calendar.Date, error) {
	start, err := calendar.Parse(startStr)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, ErrInvalidDateFormat.wrap(err)
	}
	end, err := calendar.Parse(endStr)
	if err != nil {
		return calendar.Date{}, calendar.Date{}, ErrInvalidDateFormat.wrap(err)
	}
	if !end.After(start) {
		return calendar.Date{}, calendar.Date{}, ErrInvalidDateRange
	}
	return start, end, nil
}

func (s *Service) findVehicle(ctx context.Context, id uint) (*vehicle.Vehicle, error) {
	v, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, ErrPersistence.wrap(err)
	}
	return v, nil
}

func (s *Service) findRenter(ctx context.Context, id uint) (*renter.Renter, error) {
	u, err := s.renters.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRenterNotFound
		}
		return nil, ErrPersistence.wrap(err)
	}
	return u, nil
}

// ensureAvailable 咨询可用性判定，冲突与基础设施故障分别上抛。
func (s *Service) ensureAvailable(ctx context.Context, vehicleID uint, start, end calendar.Date, excludeID uint) error {
	overlap, err := s.store.HasOverlap(ctx, vehicleID, start, end, excludeID)
	if err != nil {
		return ErrAvailabilityCheck.wrap(err)
	}
	if overlap {
		return ErrVehicleUnavailable
	}
	return nil
}

// storeErr 把存储实现返回的错误归一：领域哨兵原样透传，其余按持久化失败处理。
func storeErr(err error) error {
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return ErrPersistence.wrap(err)
}

func (s *Service) publish(ctx context.Context, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(ctx, key, payload); err != nil && s.log != nil {
		s.log.Warnf("publish %s event failed: %v", key, err)
	}
}

// Create 预检后落库：校验区间 → 找车 → 找租客 → 可用性 → 计价 →
// 原子写入（存储层锁内复核重叠），返回带生成 ID 的租约。
func (s *Service) Create(ctx context.Context, in Input) (*Rental, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	start, end, err := parseRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	v, err := s.findVehicle(ctx, in.VehicleID)
	if err != nil {
		return nil, err
	}
	u, err := s.findRenter(ctx, in.RenterID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, v.ID, start, end, 0); err != nil {
		return nil, err
	}
	price, err := Total(Days(start, end), v.DailyRate)
	if err != nil {
		return nil, err
	}

	r := &Rental{
		RenterID:  u.ID,
		VehicleID: v.ID,
		StartDate: start,
		EndDate:   end,
		Price:     price,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, storeErr(err)
	}

	r.Vehicle = *v
	r.Vehicle.Available = false
	r.Renter = *u

	s.publish(ctx, "rental.created", EventPayload(r))
	return r, nil
}

// Update 全量覆盖：与创建相同的校验流水线，可用性检查排除自身，
// 不重置车辆 available（创建时已占用）。
func (s *Service) Update(ctx context.Context, id uint, in Input) (*Rental, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	start, end, err := parseRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	v, err := s.findVehicle(ctx, in.VehicleID)
	if err != nil {
		return nil, err
	}
	u, err := s.findRenter(ctx, in.RenterID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, v.ID, start, end, id); err != nil {
		return nil, err
	}
	price, err := Total(Days(start, end), v.DailyRate)
	if err != nil {
		return nil, err
	}

	existing.RenterID = u.ID
	existing.VehicleID = v.ID
	existing.StartDate = start
	existing.EndDate = end
	existing.Price = price
	if err := s.store.Save(ctx, existing); err != nil {
		return nil, storeErr(err)
	}

	existing.Vehicle = *v
	existing.Renter = *u

	s.publish(ctx, "rental.updated", EventPayload(existing))
	return existing, nil
}

// Patch 合并后复跑完整校验：未提供的字段保持现值；
// 车辆或日期变化时重新计价。
func (s *Service) Patch(ctx context.Context, id uint, in PatchInput) (*Rental, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	start := existing.StartDate
	if in.StartDate != nil {
		if start, err = calendar.Parse(*in.StartDate); err != nil {
			return nil, ErrInvalidDateFormat.wrap(err)
		}
	}
	end := existing.EndDate
	if in.EndDate != nil {
		if end, err = calendar.Parse(*in.EndDate); err != nil {
			return nil, ErrInvalidDateFormat.wrap(err)
		}
	}
	if !end.After(start) {
		return nil, ErrInvalidDateRange
	}

	v := &existing.Vehicle
	if in.VehicleID != nil {
		if v, err = s.findVehicle(ctx, *in.VehicleID); err != nil {
			return nil, err
		}
	}
	u := &existing.Renter
	if in.RenterID != nil {
		if u, err = s.findRenter(ctx, *in.RenterID); err != nil {
			return nil, err
		}
	}

	if err := s.ensureAvailable(ctx, v.ID, start, end, id); err != nil {
		return nil, err
	}

	datesChanged := !start.Equal(existing.StartDate) || !end.Equal(existing.EndDate)
	if in.VehicleID != nil || datesChanged {
		price, err := Total(Days(start, end), v.DailyRate)
		if err != nil {
			return nil, err
		}
		existing.Price = price
	}

	existing.RenterID = u.ID
	existing.VehicleID = v.ID
	existing.StartDate = start
	existing.EndDate = end
	if err := s.store.Save(ctx, existing); err != nil {
		return nil, storeErr(err)
	}

	existing.Vehicle = *v
	existing.Renter = *u

	s.publish(ctx, "rental.updated", EventPayload(existing))
	return existing, nil
}

// Delete 删除租约并释放车辆（原子单元在存储层）。
func (s *Service) Delete(ctx context.Context, id uint) (*Rental, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	r, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	s.publish(ctx, "rental.deleted", EventPayload(r))
	return r, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*Rental, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context) ([]Rental, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	rentals, err := s.store.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return rentals, nil
}

// CheckAvailability 只读可用性查询。excludeID 为 0 表示不排除任何租约。
func (s *Service) CheckAvailability(ctx context.Context, vehicleID uint, startStr, endStr string, excludeID uint) (bool, error) {
	if s == nil || s.store == nil {
		return false, fmt.Errorf("service not initialized")
	}
	start, end, err := parseRange(startStr, endStr)
	if err != nil {
		return false, err
	}
	overlap, err := s.store.HasOverlap(ctx, vehicleID, start, end, excludeID)
	if err != nil {
		return false, ErrAvailabilityCheck.wrap(err)
	}
	return !overlap, nil
}
