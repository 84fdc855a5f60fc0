package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/luocen/notelens/internal/models"
	"github.com/luocen/notelens/internal/service/aihub"
)

const videoSystemPrompt = `You are a professional content analyst specializing in short-video scripts.
Analyze the script below in detail, covering:
1. The core appeal and emotional hook of the copy
2. Narrative structure, pacing and hooks
3. Language style and the target audience profile
4. Effectiveness of the call to action
5. At least three concrete suggestions for improvement

Return a structured report with a heading for each section.`

const textSystemPrompt = `You are a professional content analyst specializing in Xiaohongshu image-and-text posts.
Analyze the post content below in detail, covering:
1. The core appeal and attractiveness of the content
2. Structure, style and phrasing of the copy
3. The target audience profile
4. Effectiveness of engagement prompts and calls to action
5. At least three concrete suggestions for improvement

Return a structured report with a heading for each section.`

// AnalyzerOptions bounds one analysis pass.
type AnalyzerOptions struct {
	BatchSize int
	ItemDelay time.Duration
	Model     string
}

// Analyzer finishes notes: transcribed videos and collected text notes
// get one completion call each and move to completed.
type Analyzer struct {
	notes  noteStore
	llm    completionClient
	errors errorRecorder
	clock  Clock
	logger *zap.Logger
	opts   AnalyzerOptions
}

func NewAnalyzer(notes noteStore, llm completionClient, errors errorRecorder,
	clock Clock, logger *zap.Logger, opts AnalyzerOptions) *Analyzer {
	if opts.BatchSize == 0 {
		opts.BatchSize = 2
	}
	return &Analyzer{
		notes:  notes,
		llm:    llm,
		errors: errors,
		clock:  clock,
		logger: logger,
		opts:   opts,
	}
}

func (a *Analyzer) Name() string { return "analysis" }

func (a *Analyzer) Run(ctx context.Context) error {
	notes, err := a.notes.PendingForAnalysis(a.opts.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list notes pending analysis: %w", err)
	}
	if len(notes) == 0 {
		return nil
	}

	a.logger.Info("Found notes pending analysis", zap.Int("count", len(notes)))

	for _, note := range notes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.processNote(ctx, note)

		a.clock.Sleep(ctx, a.opts.ItemDelay)
	}
	return nil
}

func (a *Analyzer) processNote(ctx context.Context, note *models.Note) {
	text, err := analysisInput(note)
	if err != nil {
		a.failNote(note, err.Error())
		return
	}

	messages := buildAnalysisPrompt(note.NoteType, text)
	analysis, err := a.llm.ChatCompletion(ctx, a.opts.Model, messages)
	if err != nil || analysis == "" {
		msg := "AI analysis failed"
		if err != nil {
			msg = fmt.Sprintf("AI analysis failed: %v", err)
		}
		a.failNote(note, msg)
		return
	}

	if err := a.notes.UpdateNoteAfterAnalysis(note, analysis); err != nil {
		a.logger.Error("Failed to persist analysis", zap.Uint("note_id", note.ID), zap.Error(err))
		return
	}

	a.logger.Info("Analyzed note",
		zap.Uint("note_id", note.ID), zap.Int("analysis_len", len(analysis)))
}

// analysisInput picks the text to analyze: the transcript for video
// notes, the extracted description plus an image-count annotation for
// text notes.
func analysisInput(note *models.Note) (string, error) {
	if note.NoteType == models.NoteTypeVideo {
		if note.TranscriptText == "" {
			return "", fmt.Errorf("video note has no transcript")
		}
		return note.TranscriptText, nil
	}

	if note.RawNoteDetails == nil {
		return "", fmt.Errorf("text note has no collected details")
	}
	text := note.RawNoteDetails.GetString("desc")
	if text == "" {
		return "", fmt.Errorf("text note has no description")
	}
	if images := note.RawNoteDetails.GetSlice("image_urls"); len(images) > 0 {
		text += fmt.Sprintf("\n\nImage count: %d", len(images))
	}
	return text, nil
}

// buildAnalysisPrompt assembles the role-tagged prompt pair. The
// wording branches on content type; the required analytical dimensions
// are identical.
func buildAnalysisPrompt(noteType, text string) []aihub.Message {
	if noteType == models.NoteTypeVideo {
		return []aihub.Message{
			{Role: "system", Content: videoSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Here is the video script to analyze:\n\n%s\n\nPlease provide a detailed analysis.", text)},
		}
	}
	return []aihub.Message{
		{Role: "system", Content: textSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Here is the Xiaohongshu post content to analyze:\n\n%s\n\nThe post contains images; base the analysis on the written description.\nPlease provide a detailed analysis.", text)},
	}
}

func (a *Analyzer) failNote(note *models.Note, message string) {
	a.logger.Error("Analysis failed",
		zap.Uint("note_id", note.ID), zap.String("message", message))
	if err := a.notes.UpdateNoteWithError(note, message, models.StatusErrorAnalysis); err != nil {
		a.logger.Error("Failed to record note error", zap.Uint("note_id", note.ID), zap.Error(err))
		return
	}
	a.errors.RecordPipelineError("analyzer", &note.TaskID, &note.ID, "note analysis failed", message)
}
