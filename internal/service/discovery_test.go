package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/luocen/notelens/internal/models"
	"github.com/luocen/notelens/internal/service/xiaohongshu"
)

type fakePostsFetcher struct {
	response *xiaohongshu.UserPostsResponse
	err      error
	creators []string
}

func (f *fakePostsFetcher) FetchUserPosts(_ context.Context, creatorID, _ string) (*xiaohongshu.UserPostsResponse, error) {
	f.creators = append(f.creators, creatorID)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func feedPost(id, noteType, title, likes string) xiaohongshu.NoteSummary {
	return xiaohongshu.NoteSummary{
		NoteID: id, Type: noteType, Title: title,
		InteractInfo: &xiaohongshu.InteractInfo{LikedCount: likes},
	}
}

func feedResponse(posts ...xiaohongshu.NoteSummary) *xiaohongshu.UserPostsResponse {
	return &xiaohongshu.UserPostsResponse{Data: &xiaohongshu.UserPostsData{Notes: posts}}
}

func discoveryTask() *models.Task {
	return &models.Task{
		ID: 1, UserID: 1, CreatorID: "u1", UserCookie: "cookie",
		SelectionRules: models.DefaultSelectionRules(),
		Status:         models.TaskStatusPending,
	}
}

func TestSelectPosts(t *testing.T) {
	posts := []xiaohongshu.NoteSummary{
		feedPost("v1", "video", "视频一", "100"),
		feedPost("t1", "normal", "图文一", "9999"),
		feedPost("v2", "video", "视频二", "1.2万"),
		feedPost("v3", "video", "视频三", "500"),
	}

	got := SelectPosts(posts, models.SelectionRules{Type: "video", SortBy: "likes", Count: 2})
	if len(got) != 2 || got[0].NoteID != "v2" || got[1].NoteID != "v3" {
		ids := make([]string, len(got))
		for i, p := range got {
			ids[i] = p.NoteID
		}
		t.Errorf("selected %v, want [v2 v3]", ids)
	}

	got = SelectPosts(posts, models.SelectionRules{Type: "normal", Count: 10})
	if len(got) != 1 || got[0].NoteID != "t1" {
		t.Errorf("normal filter selected %d posts", len(got))
	}

	// "all" keeps feed order when no sort is requested.
	got = SelectPosts(posts, models.SelectionRules{Type: "all"})
	if len(got) != 4 || got[0].NoteID != "v1" {
		t.Errorf("all filter selected %d posts, first %s", len(got), got[0].NoteID)
	}
}

func TestDiscoverCreatesNotes(t *testing.T) {
	store := newMemStore()
	task := discoveryTask()
	store.tasks[1] = task

	fetcher := &fakePostsFetcher{response: feedResponse(
		feedPost("v1", "video", "视频一", "100"),
		feedPost("t1", "normal", "图文一", "9999"),
		feedPost("v2", "video", "视频二", "1.2万"),
	)}

	d := NewDiscoveryService(store, store, fetcher, &fakeErrors{}, testLogger())
	d.Discover(context.Background(), 1)

	if task.Status != models.TaskStatusNotesIdentified {
		t.Errorf("task status = %s, want notes_identified", task.Status)
	}
	if task.TotalNotesIdentified != 2 {
		t.Errorf("identified = %d, want 2", task.TotalNotesIdentified)
	}
	if len(store.notes) != 2 {
		t.Fatalf("created %d notes, want 2", len(store.notes))
	}

	// Sorted by likes, so the high-count video comes first.
	first := store.notes[0]
	if first.PlatformNoteID != "v2" || first.OriginalLikesCount != 12000 {
		t.Errorf("first note = %s likes %d", first.PlatformNoteID, first.OriginalLikesCount)
	}
	if first.ProcessingStatus != models.StatusPendingCollection {
		t.Errorf("new note status = %s, want pending_collection", first.ProcessingStatus)
	}
	if first.NoteURL != xiaohongshu.NoteURL("v2") {
		t.Errorf("note url = %q", first.NoteURL)
	}
	if fetcher.creators[0] != "u1" {
		t.Errorf("fetched creator %q, want u1", fetcher.creators[0])
	}
}

func TestDiscoverNoMatches(t *testing.T) {
	store := newMemStore()
	task := discoveryTask()
	store.tasks[1] = task

	fetcher := &fakePostsFetcher{response: feedResponse(
		feedPost("t1", "normal", "图文一", "100"),
	)}

	d := NewDiscoveryService(store, store, fetcher, &fakeErrors{}, testLogger())
	d.Discover(context.Background(), 1)

	if task.Status != models.TaskStatusNoNotesFound {
		t.Errorf("task status = %s, want no_notes_found", task.Status)
	}
	if len(store.notes) != 0 {
		t.Errorf("created %d notes, want none", len(store.notes))
	}
}

func TestDiscoverFeedFailure(t *testing.T) {
	store := newMemStore()
	task := discoveryTask()
	store.tasks[1] = task
	errs := &fakeErrors{}

	d := NewDiscoveryService(store, store, &fakePostsFetcher{err: fmt.Errorf("feed down")}, errs, testLogger())
	d.Discover(context.Background(), 1)

	if task.Status != models.TaskStatusFailed {
		t.Errorf("task status = %s, want failed", task.Status)
	}
	if len(errs.records) != 1 || errs.records[0].source != "discovery" {
		t.Errorf("error records = %+v", errs.records)
	}
}

func TestDiscoverBadResponseCode(t *testing.T) {
	store := newMemStore()
	task := discoveryTask()
	store.tasks[1] = task

	fetcher := &fakePostsFetcher{response: &xiaohongshu.UserPostsResponse{Code: 403, Msg: "forbidden"}}

	d := NewDiscoveryService(store, store, fetcher, &fakeErrors{}, testLogger())
	d.Discover(context.Background(), 1)

	if task.Status != models.TaskStatusFailed {
		t.Errorf("task status = %s, want failed", task.Status)
	}
}
