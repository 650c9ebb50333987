package mq

// 租约事件的 routing key。
const (
	KeyRentalCreated = "rental.created"
	KeyRentalUpdated = "rental.updated"
	KeyRentalDeleted = "rental.deleted"
)

// RentalEvent 租约事件消息体（与 rental.EventPayload 的字段一致）。
type RentalEvent struct {
	RentalID  uint    `json:"rentalId"`
	RenterID  uint    `json:"renterId"`
	VehicleID uint    `json:"vehicleId"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	Price     float64 `json:"price"`
}
