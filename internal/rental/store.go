package rental

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RentalCars/RentalCars/internal/calendar"
	"github.com/RentalCars/RentalCars/internal/vehicle"
)

// GormStore 基于 MySQL 的租约存储。
// Create/Delete 内部把“租约写入 + 车辆 available 翻转”裹进同一个事务，
// 任意一半失败都整体回滚。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// overlapScope 闭区间重叠谓词：s1 <= e2 AND s2 <= e1。
func overlapScope(q *gorm.DB, vehicleID uint, start, end calendar.Date, excludeID uint) *gorm.DB {
	q = q.Where("vehicle_id = ? AND start_date <= ? AND end_date >= ?", vehicleID, end, start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return q
}

// HasOverlap 查询指定车辆在 [start, end] 上是否已有租约。
// 存储层出错时原样返回错误，由上层区分“冲突”和“查不了”。
func (st *GormStore) HasOverlap(ctx context.Context, vehicleID uint, start, end calendar.Date, excludeID uint) (bool, error) {
	if st == nil || st.db == nil {
		return false, fmt.Errorf("store db is nil")
	}
	var count int64
	q := overlapScope(st.db.WithContext(ctx).Model(&Rental{}), vehicleID, start, end, excludeID)
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create 落库新租约并占用车辆，整体为一个原子单元：
// 先对车辆行加排他锁，把同车的“查重 + 插入”串行化，
// 然后在同一事务里复核重叠、写入租约、翻转 available。
func (st *GormStore) Create(ctx context.Context, r *Rental) error {
	if st == nil || st.db == nil {
		return fmt.Errorf("store db is nil")
	}
	return st.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v vehicle.Vehicle
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, r.VehicleID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVehicleNotFound
			}
			return err
		}

		var count int64
		if err := overlapScope(tx.Model(&Rental{}), r.VehicleID, r.StartDate, r.EndDate, 0).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrVehicleUnavailable
		}

		if err := tx.Omit(clause.Associations).Create(r).Error; err != nil {
			return err
		}
		return tx.Model(&vehicle.Vehicle{}).Where("id = ?", r.VehicleID).
			Update("available", false).Error
	})
}

// Save 全量覆盖既有租约，不触碰车辆 available（创建时已占用）。
// 与 Create 一样先锁车辆行、在锁内复核重叠（排除自身），
// 否则两个并发更新会各自对着对方的旧日期通过检查后双双落库。
func (st *GormStore) Save(ctx context.Context, r *Rental) error {
	if st == nil || st.db == nil {
		return fmt.Errorf("store db is nil")
	}
	return st.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v vehicle.Vehicle
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, r.VehicleID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVehicleNotFound
			}
			return err
		}

		var count int64
		if err := overlapScope(tx.Model(&Rental{}), r.VehicleID, r.StartDate, r.EndDate, r.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrVehicleUnavailable
		}

		return tx.Omit(clause.Associations).Save(r).Error
	})
}

// Delete 删除租约并释放车辆，同样是一个原子单元。
// 注意：即便同车还存在其他未来租约，也会无条件把 available 置回 true，
// 与历史行为保持一致（见 DESIGN.md 的未决问题记录）。
func (st *GormStore) Delete(ctx context.Context, id uint) (*Rental, error) {
	if st == nil || st.db == nil {
		return nil, fmt.Errorf("store db is nil")
	}
	var r Rental
	err := st.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&r, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRentalNotFound
			}
			return err
		}
		if err := tx.Delete(&Rental{}, id).Error; err != nil {
			return err
		}
		return tx.Model(&vehicle.Vehicle{}).Where("id = ?", r.VehicleID).
			Update("available", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (st *GormStore) FindByID(ctx context.Context, id uint) (*Rental, error) {
	if st == nil || st.db == nil {
		return nil, fmt.Errorf("store db is nil")
	}
	var r Rental
	err := st.db.WithContext(ctx).Preload("Vehicle").Preload("Renter").First(&r, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRentalNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (st *GormStore) List(ctx context.Context) ([]Rental, error) {
	if st == nil || st.db == nil {
		return nil, fmt.Errorf("store db is nil")
	}
	var rentals []Rental
	err := st.db.WithContext(ctx).Preload("Vehicle").Preload("Renter").
		Order("created_at desc").Find(&rentals).Error
	if err != nil {
		return nil, err
	}
	return rentals, nil
}
