package models

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPendingCollection, StatusVideoDownloaded, true},
		{StatusPendingCollection, StatusPendingAnalysis, true},
		{StatusPendingCollection, StatusCompletedNoVideo, true},
		{StatusVideoDownloaded, StatusTranscribed, true},
		{StatusTranscribed, StatusCompleted, true},
		{StatusPendingAnalysis, StatusCompleted, true},

		// No skipping stages or moving backwards.
		{StatusPendingCollection, StatusTranscribed, false},
		{StatusPendingCollection, StatusCompleted, false},
		{StatusVideoDownloaded, StatusPendingCollection, false},
		{StatusVideoDownloaded, StatusCompleted, false},
		{StatusTranscribed, StatusVideoDownloaded, false},
		{StatusPendingAnalysis, StatusVideoDownloaded, false},

		// Self transitions never happen.
		{StatusPendingCollection, StatusPendingCollection, false},
		{StatusError, StatusError, false},

		// Errors are reachable from any non-terminal status.
		{StatusPendingCollection, StatusError, true},
		{StatusPendingCollection, StatusErrorCollection, true},
		{StatusVideoDownloaded, StatusErrorTranscription, true},
		{StatusTranscribed, StatusErrorAnalysis, true},
		{StatusPendingAnalysis, StatusErrorAnalysis, true},

		// Terminal statuses never move again.
		{StatusCompleted, StatusError, false},
		{StatusCompleted, StatusPendingCollection, false},
		{StatusCompletedNoVideo, StatusCompleted, false},
		{StatusError, StatusPendingCollection, false},
		{StatusErrorCollection, StatusError, false},
		{StatusErrorTranscription, StatusTranscribed, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminalStatus(t *testing.T) {
	terminal := []string{StatusCompleted, StatusCompletedNoVideo, StatusError,
		StatusErrorCollection, StatusErrorTranscription, StatusErrorAnalysis}
	for _, s := range terminal {
		if !IsTerminalStatus(s) {
			t.Errorf("IsTerminalStatus(%q) = false, want true", s)
		}
	}

	active := []string{StatusPendingCollection, StatusVideoDownloaded,
		StatusPendingAnalysis, StatusTranscribed}
	for _, s := range active {
		if IsTerminalStatus(s) {
			t.Errorf("IsTerminalStatus(%q) = true, want false", s)
		}
	}
}

func TestIsErrorStatus(t *testing.T) {
	for _, s := range []string{StatusError, StatusErrorCollection, StatusErrorTranscription, StatusErrorAnalysis} {
		if !IsErrorStatus(s) {
			t.Errorf("IsErrorStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []string{StatusCompleted, StatusCompletedNoVideo, StatusPendingCollection} {
		if IsErrorStatus(s) {
			t.Errorf("IsErrorStatus(%q) = true, want false", s)
		}
	}
}
