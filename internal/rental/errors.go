package rental

// Error 是租约领域对外暴露的错误：稳定的机器可读 code + 人类可读 message。
// 底层原因通过 cause 包装，仅用于日志，不会返回给调用方。
type Error struct {
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is 按 code 判等，使哨兵值能匹配到携带 cause 的包装副本。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// wrap 返回携带底层原因的副本，code/message 保持不变。
func (e *Error) wrap(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, cause: cause}
}

var (
	// 写入前的校验错误，直接返回调用方，不产生任何写操作。
	ErrInvalidDateFormat = &Error{Code: "INVALID_DATE_FORMAT", Message: "invalid date format"}
	ErrInvalidDateRange  = &Error{Code: "INVALID_DATE_RANGE", Message: "end date must be after start date"}
	ErrVehicleNotFound   = &Error{Code: "VEHICLE_NOT_FOUND", Message: "vehicle not found"}
	ErrRenterNotFound    = &Error{Code: "RENTER_NOT_FOUND", Message: "renter not found"}
	ErrRentalNotFound    = &Error{Code: "RENTAL_NOT_FOUND", Message: "rental not found"}
	ErrPriceOutOfRange   = &Error{Code: "PRICE_OUT_OF_RANGE", Message: "computed price is outside the representable range"}

	// 日期区间与既有租约冲突。与基础设施故障严格区分，
	// 存储层查询失败必须表现为 ErrAvailabilityCheck，绝不折叠成“不可用”。
	ErrVehicleUnavailable = &Error{Code: "VEHICLE_NOT_AVAILABLE", Message: "vehicle is not available for the selected dates"}
	ErrAvailabilityCheck  = &Error{Code: "AVAILABILITY_CHECK_FAILED", Message: "could not check vehicle availability"}

	// 事务中途的存储错误：整体回滚后以该错误上抛。
	ErrPersistence = &Error{Code: "PERSISTENCE_FAILURE", Message: "storage operation failed"}
)
