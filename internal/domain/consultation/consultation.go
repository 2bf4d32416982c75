package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Participant names a side of the video call.
type Participant string

const (
	ParticipantPatient Participant = "patient"
	ParticipantDoctor  Participant = "doctor"
)

// Consultation tracks who has entered a video room. Join flags only ever go
// from false to true.
type Consultation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	DoctorName    string `gorm:"column:doctor_name;type:varchar(100);not null;index" json:"doctor_name"`
	PatientName   string `gorm:"column:patient_name;type:varchar(100);not null" json:"patient_name"`
	VideoCallLink string `gorm:"column:video_call_link;type:varchar(255);not null" json:"video_call_link"`

	DoctorJoined  bool `gorm:"column:doctor_joined;not null;default:false" json:"doctor_joined"`
	PatientJoined bool `gorm:"column:patient_joined;not null;default:false" json:"patient_joined"`
}

func (Consultation) TableName() string {
	return "clinical.consultations"
}

// IsActive is true once both sides have joined.
func (c *Consultation) IsActive() bool {
	return c.DoctorJoined && c.PatientJoined
}

// JoinedColumn maps a participant to the flag column it sets.
func JoinedColumn(p Participant) string {
	if p == ParticipantDoctor {
		return "doctor_joined"
	}
	return "patient_joined"
}

type Status struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	DoctorJoined   bool      `json:"doctor_joined"`
	PatientJoined  bool      `json:"patient_joined"`
	Active         bool      `json:"active"`
}
