package appointment

import (
	"time"

	"github.com/google/uuid"
)

// State transitions possibilities:
//
//	Pending → Approved → Prescribed
//	Pending → Prescribed
//	Prescribed → Prescribed (prescription re-upload)
type Status string

const (
	StatusPending    Status = "Pending"
	StatusApproved   Status = "Approved"
	StatusPrescribed Status = "Prescribed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusPrescribed:
		return true
	}
	return false
}

// TimeSlotImmediate is used for appointments created by the symptom checker.
const TimeSlotImmediate = "Immediate"

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	AshaWorkerID *uuid.UUID `gorm:"column:asha_worker_id;type:uuid;index" json:"asha_worker_id,omitempty"`

	Name         string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	TimeSlot     string `gorm:"column:time_slot;type:varchar(50);not null" json:"time_slot"`
	TypeOfDoctor string `gorm:"column:type_of_doctor;type:varchar(100);not null;index" json:"type_of_doctor"`
	Status       Status `gorm:"column:status;type:varchar(20);not null;default:'Pending';index" json:"status"`

	// Storage reference, set only together with StatusPrescribed.
	PrescriptionFile *string `gorm:"column:prescription_file;type:varchar(255)" json:"prescription_file,omitempty"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) CanTransitionTo(newStatus Status) bool {
	allowed := map[Status][]Status{
		StatusPending:    {StatusApproved, StatusPrescribed},
		StatusApproved:   {StatusApproved, StatusPrescribed},
		StatusPrescribed: {StatusPrescribed},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// HasPrescription reports whether a prescription file is attached.
func (a *Appointment) HasPrescription() bool {
	return a.PrescriptionFile != nil && *a.PrescriptionFile != ""
}

// AssignedTo reports whether the given community worker owns this appointment.
func (a *Appointment) AssignedTo(workerID uuid.UUID) bool {
	return a.AshaWorkerID != nil && *a.AshaWorkerID == workerID
}

// ApprovableFrom lists the statuses an approval may start from. Approved is
// included so a repeated approval is a no-op instead of an error.
func ApprovableFrom() []Status {
	return []Status{StatusPending, StatusApproved}
}

type BookAppointmentCommand struct {
	PatientID    uuid.UUID
	TimeSlot     string
	TypeOfDoctor string
}

type ListAppointmentsQuery struct {
	UserID       *uuid.UUID
	AshaWorkerID *uuid.UUID
	TypeOfDoctor *string
	Status       *Status
	Page         int
	PageSize     int
}

type PagedAppointments struct {
	Appointments []*Appointment `json:"appointments"`
	TotalCount   int64          `json:"total_count"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	TotalPages   int            `json:"total_pages"`
}
