package appointment

import "errors"

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrTimeSlotRequired        = errors.New("time slot is required")
	ErrSpecialtyRequired       = errors.New("type of doctor is required")
)
