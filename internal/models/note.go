package models

import (
	"strings"
	"time"
)

// Note content types as reported by the platform.
const (
	NoteTypeVideo  = "video"
	NoteTypeNormal = "normal"
)

// Processing statuses. A note only ever moves forward through the
// graph below; error statuses are terminal and reachable from any
// non-terminal state.
const (
	StatusPendingCollection = "pending_collection"
	StatusVideoDownloaded   = "video_downloaded"
	StatusPendingAnalysis   = "pending_analysis"
	StatusCompletedNoVideo  = "completed_no_video"
	StatusTranscribed       = "transcribed"
	StatusCompleted         = "completed"

	StatusError              = "error"
	StatusErrorCollection    = "error_collection"
	StatusErrorTranscription = "error_transcription"
	StatusErrorAnalysis      = "error_analysis"
)

// forwardEdges is the non-error part of the processing state machine.
var forwardEdges = map[string][]string{
	StatusPendingCollection: {StatusVideoDownloaded, StatusPendingAnalysis, StatusCompletedNoVideo},
	StatusVideoDownloaded:   {StatusTranscribed},
	StatusTranscribed:       {StatusCompleted},
	StatusPendingAnalysis:   {StatusCompleted},
}

// IsErrorStatus reports whether s is one of the terminal error states.
func IsErrorStatus(s string) bool {
	return s == StatusError || strings.HasPrefix(s, "error_")
}

// IsTerminalStatus reports whether no further transition may leave s.
func IsTerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusCompletedNoVideo || IsErrorStatus(s)
}

// CanTransition reports whether a note may move from one processing
// status to another. Moves into an error status are allowed from any
// non-terminal status; everything else must follow the forward graph.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	if IsTerminalStatus(from) {
		return false
	}
	if IsErrorStatus(to) {
		return true
	}
	for _, next := range forwardEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Note struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	TaskID             uint       `gorm:"not null;index" json:"task_id"`
	PlatformNoteID     string     `gorm:"size:255;not null;index" json:"platform_note_id"`
	NoteURL            string     `gorm:"type:text;not null" json:"note_url"`
	NoteType           string     `gorm:"size:50" json:"note_type"`
	Title              string     `gorm:"size:500" json:"title"`
	OriginalLikesCount int        `json:"original_likes_count"`
	ProcessingStatus   string     `gorm:"size:50;not null;default:'pending_collection';index" json:"processing_status"`
	RawNoteDetails     JSONMap    `gorm:"type:jsonb" json:"raw_note_details"`
	VideoURLInternal   string     `gorm:"type:text" json:"video_url_internal"`
	TranscriptText     string     `gorm:"type:text" json:"transcript_text"`
	AnalysisResultText string     `gorm:"type:text" json:"analysis_result_text"`
	ErrorMessage       string     `gorm:"type:text" json:"error_message"`
	DetailsCollectedAt *time.Time `json:"details_collected_at"`
	VideoDownloadedAt  *time.Time `json:"video_downloaded_at"`
	TranscribedAt      *time.Time `json:"transcribed_at"`
	AnalyzedAt         *time.Time `json:"analyzed_at"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Task Task `gorm:"foreignKey:TaskID" json:"-"`
}
