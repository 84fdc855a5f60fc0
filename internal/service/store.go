package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/luocen/notelens/internal/models"
)

// Store is the item/task store the pipeline and the API surface share.
// Status guards live here: every status change goes through
// setNoteStatus, so a note can never move backwards through the state
// machine regardless of which driver asks.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// --- users ---

func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// --- tasks ---

func (s *Store) CreateTask(task *models.Task) error {
	return s.db.Create(task).Error
}

// GetTask returns nil without error when the task does not exist.
func (s *Store) GetTask(id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (s *Store) SaveTask(task *models.Task) error {
	return s.db.Save(task).Error
}

func (s *Store) ListTasksByUser(userID uint, offset, limit int) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// DeleteTask removes a task and, through the FK constraint, its notes.
func (s *Store) DeleteTask(id uint) error {
	return s.db.Delete(&models.Task{}, id).Error
}

// --- notes ---

func (s *Store) CreateNote(note *models.Note) error {
	return s.db.Create(note).Error
}

func (s *Store) GetNote(id uint) (*models.Note, error) {
	var note models.Note
	if err := s.db.First(&note, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

func (s *Store) ListNotesByTask(taskID uint, offset, limit int) ([]models.Note, error) {
	var notes []models.Note
	err := s.db.Where("task_id = ?", taskID).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&notes).Error
	return notes, err
}

// PendingForCollection selects the oldest notes awaiting detail
// resolution.
func (s *Store) PendingForCollection(limit int) ([]*models.Note, error) {
	var notes []*models.Note
	err := s.db.Where("processing_status = ?", models.StatusPendingCollection).
		Order("created_at ASC").Limit(limit).
		Find(&notes).Error
	return notes, err
}

// PendingForTranscription selects downloaded videos that still carry a
// media reference.
func (s *Store) PendingForTranscription(limit int) ([]*models.Note, error) {
	var notes []*models.Note
	err := s.db.Where("processing_status = ? AND video_url_internal <> ''", models.StatusVideoDownloaded).
		Order("created_at ASC").Limit(limit).
		Find(&notes).Error
	return notes, err
}

// PendingForAnalysis selects transcribed videos and text notes waiting
// for analysis.
func (s *Store) PendingForAnalysis(limit int) ([]*models.Note, error) {
	var notes []*models.Note
	err := s.db.Where("processing_status IN ?", []string{models.StatusTranscribed, models.StatusPendingAnalysis}).
		Order("created_at ASC").Limit(limit).
		Find(&notes).Error
	return notes, err
}

func (s *Store) setNoteStatus(note *models.Note, status string) error {
	if !models.CanTransition(note.ProcessingStatus, status) {
		return fmt.Errorf("illegal status transition %s -> %s for note %d",
			note.ProcessingStatus, status, note.ID)
	}
	note.ProcessingStatus = status
	return nil
}

// UpdateNoteAfterCollection persists the resolved detail payload and
// advances the note: video notes move to video_downloaded, text notes
// with a description to pending_analysis, and text notes with nothing
// to analyze are finished as completed_no_video.
func (s *Store) UpdateNoteAfterCollection(note *models.Note, raw models.JSONMap, videoURL string) error {
	now := time.Now()
	next := models.StatusPendingAnalysis
	if videoURL != "" {
		next = models.StatusVideoDownloaded
	} else if raw.GetString("desc") == "" {
		next = models.StatusCompletedNoVideo
	}
	if err := s.setNoteStatus(note, next); err != nil {
		return err
	}

	note.RawNoteDetails = raw
	note.DetailsCollectedAt = &now
	if videoURL != "" {
		note.VideoURLInternal = videoURL
		note.VideoDownloadedAt = &now
	}
	return s.db.Save(note).Error
}

func (s *Store) UpdateNoteAfterTranscription(note *models.Note, transcript string) error {
	if err := s.setNoteStatus(note, models.StatusTranscribed); err != nil {
		return err
	}
	now := time.Now()
	note.TranscriptText = transcript
	note.TranscribedAt = &now
	return s.db.Save(note).Error
}

func (s *Store) UpdateNoteAfterAnalysis(note *models.Note, analysis string) error {
	if err := s.setNoteStatus(note, models.StatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	note.AnalysisResultText = analysis
	note.AnalyzedAt = &now
	return s.db.Save(note).Error
}

// UpdateNoteWithError records a terminal failure on the note.
func (s *Store) UpdateNoteWithError(note *models.Note, message, status string) error {
	if err := s.setNoteStatus(note, status); err != nil {
		return err
	}
	note.ErrorMessage = message
	return s.db.Save(note).Error
}
