package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TargetKind tells what a menu reference points at.
type TargetKind string

const (
	TargetCategory TargetKind = "category"
	TargetMenuItem TargetKind = "menu_item"
)

func (k TargetKind) Valid() bool {
	switch k {
	case TargetCategory, TargetMenuItem:
		return true
	default:
		return false
	}
}

// Assignment binds one menu target to one printer. A target may be bound
// to any number of printers; each binding is a separate row.
type Assignment struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	PrinterID  snowflake.ID `gorm:"not null;uniqueIndex:idx_assignment_target" json:"printer_id"`
	TargetKind TargetKind   `gorm:"not null;uniqueIndex:idx_assignment_target" json:"target_kind"`
	TargetID   string       `gorm:"not null;uniqueIndex:idx_assignment_target" json:"target_id"`
	// TargetName is a denormalized display name, kept so listings do not
	// need the menu service.
	TargetName string    `json:"target_name,omitempty"`
	Priority   int       `gorm:"not null;default:0" json:"priority"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Assignment) TableName() string {
	return "printer_assignments"
}
