package models

import "time"

// AuditLog records one submission made through the agenda service.
type AuditLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ClinicID string `gorm:"size:64;index" json:"clinic_id"`
	UserID   string `gorm:"size:64" json:"user_id"`
	Action   string `gorm:"size:50;not null" json:"action"`

	Entity   string `gorm:"size:50" json:"entity"`
	EntityID *uint  `json:"entity_id"`
	Metadata string `gorm:"type:text" json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
}
