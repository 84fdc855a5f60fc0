package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/luocen/notelens/internal/models"
)

// TranscriberOptions bounds one transcription pass.
type TranscriberOptions struct {
	BatchSize             int
	ItemDelay             time.Duration
	RetryDelay            time.Duration
	MaxDownloadAttempts   int
	MaxTranscribeAttempts int
	Models                []string
}

// transcriptionPlan expands a model fallback list into the model used
// by each attempt: primary first, then the alternates, wrapping around
// if attempts outnumber models.
func transcriptionPlan(modelList []string, attempts int) []string {
	if len(modelList) == 0 || attempts <= 0 {
		return nil
	}
	plan := make([]string, attempts)
	for i := range plan {
		plan[i] = modelList[i%len(modelList)]
	}
	return plan
}

// Transcriber advances video notes from video_downloaded: it acquires
// the media, extracts the audio track and runs speech-to-text with a
// model fallback chain.
type Transcriber struct {
	notes  noteStore
	media  mediaProcessor
	stt    transcriptionClient
	errors errorRecorder
	clock  Clock
	logger *zap.Logger
	opts   TranscriberOptions
}

func NewTranscriber(notes noteStore, media mediaProcessor, stt transcriptionClient,
	errors errorRecorder, clock Clock, logger *zap.Logger, opts TranscriberOptions) *Transcriber {
	if opts.BatchSize == 0 {
		opts.BatchSize = 2
	}
	if opts.MaxDownloadAttempts == 0 {
		opts.MaxDownloadAttempts = 3
	}
	if opts.MaxTranscribeAttempts == 0 {
		opts.MaxTranscribeAttempts = 3
	}
	if len(opts.Models) == 0 {
		opts.Models = []string{"whisper-1", "large", "medium"}
	}
	return &Transcriber{
		notes:  notes,
		media:  media,
		stt:    stt,
		errors: errors,
		clock:  clock,
		logger: logger,
		opts:   opts,
	}
}

func (t *Transcriber) Name() string { return "transcription" }

func (t *Transcriber) Run(ctx context.Context) error {
	notes, err := t.notes.PendingForTranscription(t.opts.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list notes pending transcription: %w", err)
	}
	if len(notes) == 0 {
		return nil
	}

	t.logger.Info("Found notes pending transcription", zap.Int("count", len(notes)))

	for _, note := range notes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.processNote(ctx, note)

		t.clock.Sleep(ctx, t.opts.ItemDelay)
	}
	return nil
}

func (t *Transcriber) processNote(ctx context.Context, note *models.Note) {
	if note.VideoURLInternal == "" {
		t.failNote(note, "note has no media reference")
		return
	}

	videoPath, audioPath := t.acquireMedia(ctx, note)
	if audioPath == "" {
		t.media.Cleanup(videoPath)
		t.failNote(note, "failed to download video or extract audio")
		return
	}

	transcript := t.transcribe(ctx, note, audioPath)

	// Temp files go away whether transcription worked or not.
	t.media.Cleanup(videoPath, audioPath)

	if transcript == "" {
		t.failNote(note, "audio transcription failed")
		return
	}

	if err := t.notes.UpdateNoteAfterTranscription(note, transcript); err != nil {
		t.logger.Error("Failed to persist transcript", zap.Uint("note_id", note.ID), zap.Error(err))
		return
	}

	t.logger.Info("Transcribed note",
		zap.Uint("note_id", note.ID), zap.Int("transcript_len", len(transcript)))
}

// acquireMedia downloads the video and extracts its audio, retrying
// the whole acquisition up to the configured attempt budget.
func (t *Transcriber) acquireMedia(ctx context.Context, note *models.Note) (videoPath, audioPath string) {
	for attempt := 1; attempt <= t.opts.MaxDownloadAttempts; attempt++ {
		vp, err := t.media.Download(ctx, note.VideoURLInternal)
		if err == nil {
			ap, exErr := t.media.ExtractAudio(ctx, vp)
			if exErr == nil {
				return vp, ap
			}
			err = exErr
			t.media.Cleanup(vp)
		}

		t.logger.Warn("Media acquisition attempt failed",
			zap.Uint("note_id", note.ID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", t.opts.MaxDownloadAttempts),
			zap.Error(err))

		if attempt < t.opts.MaxDownloadAttempts {
			if !t.clock.Sleep(ctx, t.opts.RetryDelay) {
				return "", ""
			}
		}
	}
	return "", ""
}

// transcribe runs the attempt plan: each failed attempt moves on to
// the next model in the fallback list.
func (t *Transcriber) transcribe(ctx context.Context, note *models.Note, audioPath string) string {
	plan := transcriptionPlan(t.opts.Models, t.opts.MaxTranscribeAttempts)
	for i, model := range plan {
		t.logger.Info("Transcribing audio",
			zap.Uint("note_id", note.ID),
			zap.String("model", model),
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", len(plan)))

		text, err := t.stt.Transcribe(ctx, audioPath, model)
		if err == nil && text != "" {
			return text
		}

		t.logger.Warn("Transcription attempt failed",
			zap.Uint("note_id", note.ID),
			zap.String("model", model),
			zap.Error(err))

		if i < len(plan)-1 {
			if !t.clock.Sleep(ctx, t.opts.RetryDelay) {
				return ""
			}
		}
	}
	return ""
}

func (t *Transcriber) failNote(note *models.Note, message string) {
	t.logger.Error("Transcription failed",
		zap.Uint("note_id", note.ID), zap.String("message", message))
	if err := t.notes.UpdateNoteWithError(note, message, models.StatusErrorTranscription); err != nil {
		t.logger.Error("Failed to record note error", zap.Uint("note_id", note.ID), zap.Error(err))
		return
	}
	t.errors.RecordPipelineError("transcriber", &note.TaskID, &note.ID, "note transcription failed", message)
}
