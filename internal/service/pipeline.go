package service

import (
	"context"

	"github.com/luocen/notelens/internal/models"
	"github.com/luocen/notelens/internal/service/aihub"
	"github.com/luocen/notelens/internal/service/xiaohongshu"
)

// StageDriver is one phase of the pipeline. Run selects a batch of
// notes in the stage's input status, advances each one and persists
// the outcome; per-item failures are committed to the item, so Run
// only returns an error when the stage itself cannot make progress.
type StageDriver interface {
	Name() string
	Run(ctx context.Context) error
}

// Narrow store views, implemented by *Store and faked in tests.

type noteStore interface {
	PendingForCollection(limit int) ([]*models.Note, error)
	PendingForTranscription(limit int) ([]*models.Note, error)
	PendingForAnalysis(limit int) ([]*models.Note, error)
	UpdateNoteAfterCollection(note *models.Note, raw models.JSONMap, videoURL string) error
	UpdateNoteAfterTranscription(note *models.Note, transcript string) error
	UpdateNoteAfterAnalysis(note *models.Note, analysis string) error
	UpdateNoteWithError(note *models.Note, message, status string) error
}

type taskStore interface {
	GetTask(id uint) (*models.Task, error)
	SaveTask(task *models.Task) error
}

type errorRecorder interface {
	RecordPipelineError(source string, taskID, noteID *uint, title, message string)
}

// Collaborator slices consumed by the drivers.

type detailFetcher interface {
	FetchNoteDetail(ctx context.Context, noteURL, cookie string) (*xiaohongshu.NoteDetailResponse, error)
}

type tokenResolver interface {
	Resolve(ctx context.Context, q xiaohongshu.TokenQuery) (*xiaohongshu.TokenMatch, error)
}

type mediaProcessor interface {
	Download(ctx context.Context, videoURL string) (string, error)
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
	Cleanup(paths ...string)
}

type transcriptionClient interface {
	Transcribe(ctx context.Context, audioPath, model string) (string, error)
}

type completionClient interface {
	ChatCompletion(ctx context.Context, model string, messages []aihub.Message) (string, error)
}
