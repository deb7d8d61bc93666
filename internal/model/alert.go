package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AlertType identifies the event that produced an alert
type AlertType string

const (
	AlertPOUpload  AlertType = "PO_UPLOAD"
	AlertPIUpload  AlertType = "PI_UPLOAD"
	AlertPODeleted AlertType = "PO_DELETED"
)

// Alert is one in-app notification for one recipient
type Alert struct {
	ID              string            `json:"id" gorm:"type:uuid;primaryKey"`
	Message         string            `json:"message" gorm:"type:text;not null"`
	AlertType       AlertType         `json:"alert_type" gorm:"type:varchar(20);index"`
	POID            *string           `json:"po_id,omitempty" gorm:"type:uuid;index"`
	POSnapshot      datatypes.JSONMap `json:"po_snapshot,omitempty" gorm:"type:jsonb"`
	RecipientUserID string            `json:"recipient_user_id" gorm:"type:varchar(128);index;not null"`
	IsRead          bool              `json:"is_read" gorm:"not null;default:false"`
	ReadAt          *time.Time        `json:"read_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `json:"-" gorm:"index"`
}

func (Alert) TableName() string { return "alerts" }

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	newID(&a.ID)
	return nil
}
