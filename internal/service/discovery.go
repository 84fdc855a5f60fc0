package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/luocen/notelens/internal/models"
	"github.com/luocen/notelens/internal/service/xiaohongshu"
)

type postsFetcher interface {
	FetchUserPosts(ctx context.Context, creatorID, cookie string) (*xiaohongshu.UserPostsResponse, error)
}

type noteCreator interface {
	CreateNote(note *models.Note) error
}

// DiscoveryService turns a freshly created task into pipeline items:
// it lists the creator's feed, applies the task's selection rules and
// creates one pending_collection note per selected post.
type DiscoveryService struct {
	tasks   taskStore
	notes   noteCreator
	gateway postsFetcher
	errors  errorRecorder
	logger  *zap.Logger
}

func NewDiscoveryService(tasks taskStore, notes noteCreator, gateway postsFetcher,
	errors errorRecorder, logger *zap.Logger) *DiscoveryService {
	return &DiscoveryService{
		tasks:   tasks,
		notes:   notes,
		gateway: gateway,
		errors:  errors,
		logger:  logger,
	}
}

// Discover runs the feed listing for one task. It is meant to run in
// the background right after task creation; every outcome is recorded
// on the task.
func (d *DiscoveryService) Discover(ctx context.Context, taskID uint) {
	task, err := d.tasks.GetTask(taskID)
	if err != nil || task == nil {
		d.logger.Error("Failed to load task for discovery", zap.Uint("task_id", taskID), zap.Error(err))
		return
	}

	if task.CreatorID == "" {
		d.failTask(task, "could not derive creator id from profile URL")
		return
	}

	response, err := d.gateway.FetchUserPosts(ctx, task.CreatorID, task.UserCookie)
	if err != nil {
		d.failTask(task, fmt.Sprintf("failed to fetch creator feed: %v", err))
		return
	}
	if response.Code != 0 {
		d.failTask(task, fmt.Sprintf("feed API returned code %d: %s", response.Code, response.Msg))
		return
	}

	var posts []xiaohongshu.NoteSummary
	if response.Data != nil {
		posts = response.Data.Notes
	}
	selected := SelectPosts(posts, task.SelectionRules)

	if len(selected) == 0 {
		task.Status = models.TaskStatusNoNotesFound
		task.StatusMessage = "no notes matched the selection rules"
		if err := d.tasks.SaveTask(task); err != nil {
			d.logger.Error("Failed to update task", zap.Uint("task_id", task.ID), zap.Error(err))
		}
		return
	}

	task.TotalNotesIdentified = len(selected)
	task.NotesProcessedCount = 0
	task.Status = models.TaskStatusNotesIdentified
	task.StatusMessage = fmt.Sprintf("identified %d matching notes", len(selected))

	for _, post := range selected {
		noteType := post.Type
		if noteType != models.NoteTypeVideo {
			noteType = models.NoteTypeNormal
		}
		note := &models.Note{
			TaskID:             task.ID,
			PlatformNoteID:     post.NoteID,
			NoteURL:            xiaohongshu.NoteURL(post.NoteID),
			NoteType:           noteType,
			Title:              post.Title,
			OriginalLikesCount: post.LikeCount(),
			ProcessingStatus:   models.StatusPendingCollection,
		}
		if err := d.notes.CreateNote(note); err != nil {
			d.logger.Error("Failed to create note",
				zap.Uint("task_id", task.ID), zap.String("platform_note_id", post.NoteID), zap.Error(err))
		}
	}

	if err := d.tasks.SaveTask(task); err != nil {
		d.logger.Error("Failed to update task", zap.Uint("task_id", task.ID), zap.Error(err))
		return
	}

	d.logger.Info("Discovery completed",
		zap.Uint("task_id", task.ID), zap.Int("identified", len(selected)))
}

func (d *DiscoveryService) failTask(task *models.Task, message string) {
	d.logger.Error("Discovery failed", zap.Uint("task_id", task.ID), zap.String("message", message))
	task.Status = models.TaskStatusFailed
	task.StatusMessage = message
	if err := d.tasks.SaveTask(task); err != nil {
		d.logger.Error("Failed to update task", zap.Uint("task_id", task.ID), zap.Error(err))
	}
	d.errors.RecordPipelineError("discovery", &task.ID, nil, "feed discovery failed", message)
}

// SelectPosts applies a task's selection rules to a creator feed:
// content type filter, optional popularity sort, count cap.
func SelectPosts(posts []xiaohongshu.NoteSummary, rules models.SelectionRules) []xiaohongshu.NoteSummary {
	selected := make([]xiaohongshu.NoteSummary, 0, len(posts))
	for _, post := range posts {
		switch rules.Type {
		case models.NoteTypeVideo:
			if post.Type != models.NoteTypeVideo {
				continue
			}
		case models.NoteTypeNormal:
			if post.Type == models.NoteTypeVideo {
				continue
			}
		}
		selected = append(selected, post)
	}

	if rules.SortBy == "likes" {
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].LikeCount() > selected[j].LikeCount()
		})
	}

	if rules.Count > 0 && len(selected) > rules.Count {
		selected = selected[:rules.Count]
	}
	return selected
}
