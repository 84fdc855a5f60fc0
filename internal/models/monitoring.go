package models

import (
	"time"
)

// SystemStats holds daily aggregates over tasks and notes.
type SystemStats struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Date            time.Time `gorm:"uniqueIndex;not null" json:"date"`
	TotalTasks      int       `gorm:"default:0" json:"total_tasks"`
	CollectedTasks  int       `gorm:"default:0" json:"collected_tasks"`
	FailedTasks     int       `gorm:"default:0" json:"failed_tasks"`
	TotalNotes      int       `gorm:"default:0" json:"total_notes"`
	CompletedNotes  int       `gorm:"default:0" json:"completed_notes"`
	FailedNotes     int       `gorm:"default:0" json:"failed_notes"`
	InProgressNotes int       `gorm:"default:0" json:"in_progress_notes"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ErrorLog records a pipeline or API failure for later inspection.
type ErrorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;not null;index" json:"level"`
	Source    string    `gorm:"size:100;not null;index" json:"source"` // collector, transcriber, analyzer, discovery, scheduler
	TaskID    *uint     `gorm:"index" json:"task_id"`
	NoteID    *uint     `gorm:"index" json:"note_id"`
	Title     string    `gorm:"size:500;not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
