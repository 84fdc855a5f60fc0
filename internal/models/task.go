package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Task statuses. A task reflects collection completeness only; the
// transcription and analysis stages do not feed back into it.
const (
	TaskStatusPending         = "pending"
	TaskStatusNotesIdentified = "notes_identified"
	TaskStatusCollected       = "collected"
	TaskStatusNoNotesFound    = "no_notes_found"
	TaskStatusFailed          = "failed"
)

// SelectionRules controls which of a creator's notes a task picks up.
type SelectionRules struct {
	Type   string `json:"type"`    // "video", "normal" or "all"
	SortBy string `json:"sort_by"` // "likes" or "" for feed order
	Count  int    `json:"count"`   // cap on selected notes
}

// DefaultSelectionRules mirrors the defaults applied when a task is
// created without explicit rules.
func DefaultSelectionRules() SelectionRules {
	return SelectionRules{Type: "video", SortBy: "likes", Count: 10}
}

// Scan implements the sql.Scanner interface
func (r *SelectionRules) Scan(value interface{}) error {
	if value == nil {
		*r = SelectionRules{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("cannot scan %T into SelectionRules", value)
	}
}

// Value implements the driver.Valuer interface
func (r SelectionRules) Value() (driver.Value, error) {
	return json.Marshal(r)
}

type Task struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	UserID               uint           `gorm:"not null;index" json:"user_id"`
	CreatorProfileURL    string         `gorm:"type:text;not null" json:"creator_profile_url"`
	CreatorID            string         `gorm:"size:255;index" json:"creator_id"`
	UserCookie           string         `gorm:"type:text;not null" json:"-"`
	SelectionRules       SelectionRules `gorm:"type:jsonb" json:"selection_rules"`
	Status               string         `gorm:"size:50;not null;default:'pending';index" json:"status"`
	StatusMessage        string         `gorm:"type:text" json:"status_message"`
	TotalNotesIdentified int            `gorm:"default:0" json:"total_notes_identified"`
	NotesProcessedCount  int            `gorm:"default:0" json:"notes_processed_count"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Notes []Note `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"notes,omitempty"`
}
