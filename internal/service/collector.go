package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/luocen/notelens/internal/models"
	"github.com/luocen/notelens/internal/service/xiaohongshu"
)

// CollectorOptions bounds one collection pass.
type CollectorOptions struct {
	BatchSize        int
	ItemDelay        time.Duration
	RetryDelay       time.Duration
	MaxDetailRetries int

	SearchMaxPages         int
	SearchPageSize         int
	FallbackSearchMaxPages int
}

// Collector advances notes from pending_collection: it repairs the
// note's access token via the resolver, fetches the detail payload and
// routes the note to the video or text branch of the pipeline.
type Collector struct {
	notes    noteStore
	tasks    taskStore
	resolver tokenResolver
	gateway  detailFetcher
	errors   errorRecorder
	clock    Clock
	logger   *zap.Logger
	opts     CollectorOptions
}

func NewCollector(notes noteStore, tasks taskStore, resolver tokenResolver, gateway detailFetcher,
	errors errorRecorder, clock Clock, logger *zap.Logger, opts CollectorOptions) *Collector {
	if opts.BatchSize == 0 {
		opts.BatchSize = 5
	}
	if opts.MaxDetailRetries == 0 {
		opts.MaxDetailRetries = 3
	}
	return &Collector{
		notes:    notes,
		tasks:    tasks,
		resolver: resolver,
		gateway:  gateway,
		errors:   errors,
		clock:    clock,
		logger:   logger,
		opts:     opts,
	}
}

func (c *Collector) Name() string { return "collection" }

func (c *Collector) Run(ctx context.Context) error {
	notes, err := c.notes.PendingForCollection(c.opts.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list notes pending collection: %w", err)
	}
	if len(notes) == 0 {
		return nil
	}

	c.logger.Info("Found notes pending collection", zap.Int("count", len(notes)))

	for _, note := range notes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.processNote(ctx, note)

		// Throttle outbound calls between items.
		c.clock.Sleep(ctx, c.opts.ItemDelay)
	}
	return nil
}

func (c *Collector) processNote(ctx context.Context, note *models.Note) {
	task, err := c.tasks.GetTask(note.TaskID)
	if err != nil {
		c.logger.Error("Failed to load parent task",
			zap.Uint("note_id", note.ID), zap.Uint("task_id", note.TaskID), zap.Error(err))
		return
	}
	if task == nil {
		// The parent is gone; nothing can ever collect this note.
		c.failNote(note, "parent task does not exist", models.StatusError)
		return
	}

	detail, err := c.fetchDetail(ctx, note, task)
	if err != nil {
		c.failNote(note, fmt.Sprintf("failed to fetch note detail: %v", err), models.StatusErrorCollection)
		return
	}

	noteType := models.NoteTypeNormal
	if detail.VideoLink != "" {
		noteType = models.NoteTypeVideo
	}
	note.NoteType = noteType

	raw := rawDetails(detail)
	if err := c.notes.UpdateNoteAfterCollection(note, raw, detail.VideoLink); err != nil {
		c.logger.Error("Failed to persist collected note",
			zap.Uint("note_id", note.ID), zap.Error(err))
		return
	}

	task.NotesProcessedCount++
	if task.NotesProcessedCount >= task.TotalNotesIdentified {
		task.Status = models.TaskStatusCollected
		task.StatusMessage = "all notes collected"
	}
	if err := c.tasks.SaveTask(task); err != nil {
		c.logger.Error("Failed to update task counters",
			zap.Uint("task_id", task.ID), zap.Error(err))
	}

	c.logger.Info("Collected note",
		zap.Uint("note_id", note.ID),
		zap.String("type", noteType),
		zap.String("status", note.ProcessingStatus))
}

// fetchDetail resolves a token-bearing URL through the search cascade
// when a title is available, and falls back to the stored URL when it
// is not. The detail call itself is retried within a bounded budget.
func (c *Collector) fetchDetail(ctx context.Context, note *models.Note, task *models.Task) (*xiaohongshu.NoteDetail, error) {
	detailURL := note.NoteURL
	if note.Title != "" {
		match, err := c.resolver.Resolve(ctx, xiaohongshu.TokenQuery{
			NoteID:           note.PlatformNoteID,
			Title:            note.Title,
			UserID:           task.CreatorID,
			Cookie:           task.UserCookie,
			MaxPages:         c.opts.SearchMaxPages,
			PageSize:         c.opts.SearchPageSize,
			FallbackMaxPages: c.opts.FallbackSearchMaxPages,
		})
		if err != nil {
			return nil, err
		}
		detailURL = xiaohongshu.NoteURLWithToken(match.NoteID, match.XsecToken, match.XsecSource)
	} else {
		c.logger.Info("Note has no title, using stored URL directly", zap.Uint("note_id", note.ID))
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxDetailRetries; attempt++ {
		resp, err := c.gateway.FetchNoteDetail(ctx, detailURL, task.UserCookie)
		switch {
		case err != nil:
			lastErr = err
		case resp.Code != 0:
			lastErr = fmt.Errorf("detail API returned code %d: %s", resp.Code, resp.Msg)
		case resp.Data == nil:
			lastErr = fmt.Errorf("detail API returned empty payload")
		default:
			return resp.Data, nil
		}

		c.logger.Warn("Detail fetch attempt failed",
			zap.Uint("note_id", note.ID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.opts.MaxDetailRetries),
			zap.Error(lastErr))

		if attempt < c.opts.MaxDetailRetries {
			if !c.clock.Sleep(ctx, c.opts.RetryDelay) {
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (c *Collector) failNote(note *models.Note, message, status string) {
	c.logger.Error("Collection failed",
		zap.Uint("note_id", note.ID),
		zap.String("status", status),
		zap.String("message", message))
	if err := c.notes.UpdateNoteWithError(note, message, status); err != nil {
		c.logger.Error("Failed to record note error", zap.Uint("note_id", note.ID), zap.Error(err))
		return
	}
	c.errors.RecordPipelineError("collector", &note.TaskID, &note.ID, "note collection failed", message)
}

// rawDetails flattens the detail payload into the opaque form stored
// on the note; text notes additionally carry their image URLs.
func rawDetails(detail *xiaohongshu.NoteDetail) models.JSONMap {
	raw := models.JSONMap{
		"note_id":      detail.NoteID,
		"title":        detail.Title,
		"desc":         detail.Desc,
		"url":          detail.URL,
		"video_link":   detail.VideoLink,
		"audio_link":   detail.AudioLink,
		"author":       detail.Author,
		"author_id":    detail.AuthorID,
		"likes":        detail.Likes,
		"comments":     detail.Comments,
		"shares":       detail.Shares,
		"collections":  detail.Collections,
		"release_time": detail.ReleaseTime,
	}
	if len(detail.Cover) > 0 {
		covers := make([]any, len(detail.Cover))
		for i, c := range detail.Cover {
			covers[i] = c
		}
		raw["cover"] = covers
	}
	if len(detail.Tags) > 0 {
		tags := make([]any, len(detail.Tags))
		for i, t := range detail.Tags {
			tags[i] = t
		}
		raw["tags"] = tags
	}
	if detail.VideoLink == "" && len(detail.Images) > 0 {
		urls := make([]any, len(detail.Images))
		for i, img := range detail.Images {
			urls[i] = img.URL
		}
		raw["image_urls"] = urls
	}
	return raw
}
