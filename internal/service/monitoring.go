package service

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luocen/notelens/internal/models"
)

// MonitoringService keeps an inspectable record of pipeline failures
// and daily aggregates, next to the free-form zap output.
type MonitoringService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewMonitoringService(db *gorm.DB, logger *zap.Logger) *MonitoringService {
	return &MonitoringService{db: db, logger: logger}
}

// RecordPipelineError writes an error log row. Failures here are only
// logged; monitoring must never break the pipeline.
func (m *MonitoringService) RecordPipelineError(source string, taskID, noteID *uint, title, message string) {
	errorLog := &models.ErrorLog{
		Level:   "ERROR",
		Source:  source,
		TaskID:  taskID,
		NoteID:  noteID,
		Title:   title,
		Message: message,
	}
	if err := m.db.Create(errorLog).Error; err != nil {
		m.logger.Error("Failed to record error log", zap.Error(err))
	}
}

// UpdateSystemStats recomputes today's aggregate row.
func (m *MonitoringService) UpdateSystemStats() error {
	today := time.Now().Truncate(24 * time.Hour)

	stats := models.SystemStats{Date: today}

	type countQuery struct {
		dest  *int
		model any
		where string
		args  []any
	}
	terminalErrors := []string{
		models.StatusError, models.StatusErrorCollection,
		models.StatusErrorTranscription, models.StatusErrorAnalysis,
	}
	queries := []countQuery{
		{&stats.TotalTasks, &models.Task{}, "", nil},
		{&stats.CollectedTasks, &models.Task{}, "status = ?", []any{models.TaskStatusCollected}},
		{&stats.FailedTasks, &models.Task{}, "status = ?", []any{models.TaskStatusFailed}},
		{&stats.TotalNotes, &models.Note{}, "", nil},
		{&stats.CompletedNotes, &models.Note{}, "processing_status IN ?",
			[]any{[]string{models.StatusCompleted, models.StatusCompletedNoVideo}}},
		{&stats.FailedNotes, &models.Note{}, "processing_status IN ?", []any{terminalErrors}},
		{&stats.InProgressNotes, &models.Note{}, "processing_status IN ?",
			[]any{[]string{models.StatusPendingCollection, models.StatusVideoDownloaded,
				models.StatusPendingAnalysis, models.StatusTranscribed}}},
	}

	for _, q := range queries {
		var count int64
		query := m.db.Model(q.model)
		if q.where != "" {
			query = query.Where(q.where, q.args...)
		}
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		*q.dest = int(count)
	}

	return m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		UpdateAll: true,
	}).Create(&stats).Error
}

// CleanupOldData drops error logs older than the retention window.
func (m *MonitoringService) CleanupOldData(retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return m.db.Where("created_at < ?", cutoff).Delete(&models.ErrorLog{}).Error
}

// RecentErrors lists the newest error log entries for the dashboard.
func (m *MonitoringService) RecentErrors(limit int) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	err := m.db.Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
