package rental

import (
	"time"

	"github.com/RentalCars/RentalCars/internal/calendar"
	"github.com/RentalCars/RentalCars/internal/renter"
	"github.com/RentalCars/RentalCars/internal/vehicle"
)

// Rental 是 rentals 表的 GORM 模型。
// 不变量：同一辆车的任意两条租约，其 [start, end] 闭区间不得重叠。
type Rental struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	RenterID  uint          `gorm:"index;not null" json:"renterId"`
	VehicleID uint          `gorm:"index:idx_rentals_vehicle_dates;not null" json:"vehicleId"`
	StartDate calendar.Date `gorm:"type:date;not null;index:idx_rentals_vehicle_dates" json:"startDate"`
	EndDate   calendar.Date `gorm:"type:date;not null" json:"endDate"`
	Price     float64       `gorm:"type:decimal(10,2);not null" json:"price"`

	// 读出时附带的只读快照；生命周期归各自目录所有。
	Vehicle vehicle.Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle"`
	Renter  renter.Renter   `gorm:"foreignKey:RenterID" json:"renter"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Overlaps 闭区间重叠判定：s1 <= e2 && s2 <= e1。
func Overlaps(s1, e1, s2, e2 calendar.Date) bool {
	return !s1.After(e2) && !s2.After(e1)
}

// EventPayload 构造租约事件的消息体（发往消息总线）。
func EventPayload(r *Rental) map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"rentalId":  r.ID,
		"renterId":  r.RenterID,
		"vehicleId": r.VehicleID,
		"startDate": r.StartDate.String(),
		"endDate":   r.EndDate.String(),
		"price":     r.Price,
	}
}
