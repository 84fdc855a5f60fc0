package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luocen/notelens/internal/config"
)

// Processor downloads video assets and extracts their audio track by
// shelling out to yt-dlp and ffmpeg.
type Processor struct {
	config *config.MediaConfig
	logger *zap.Logger
}

func NewProcessor(cfg *config.MediaConfig, logger *zap.Logger) (*Processor, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media cache dir: %w", err)
	}
	return &Processor{config: cfg, logger: logger}, nil
}

// Download fetches a video into the cache dir and returns its path.
func (p *Processor) Download(ctx context.Context, videoURL string) (string, error) {
	id := uuid.NewString()
	outputTemplate := filepath.Join(p.config.CacheDir, id+".%(ext)s")

	cmd := exec.CommandContext(ctx, p.config.YTDLPPath,
		"-f", "best",
		"-o", outputTemplate,
		"--no-warnings",
		"--quiet",
		videoURL,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	matches, err := filepath.Glob(filepath.Join(p.config.CacheDir, id+".*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("download finished but no file found for %s", videoURL)
	}

	p.logger.Info("Downloaded video", zap.String("path", matches[0]))
	return matches[0], nil
}

// ExtractAudio pulls the audio track out of a downloaded video and
// returns the mp3 path.
func (p *Processor) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", fmt.Errorf("video file not found: %w", err)
	}

	audioPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".mp3"

	cmd := exec.CommandContext(ctx, p.config.FFmpegPath,
		"-i", videoPath,
		"-q:a", "0",
		"-map", "a",
		"-y",
		audioPath,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("audio extraction finished but file missing: %w", err)
	}

	p.logger.Info("Extracted audio", zap.String("path", audioPath))
	return audioPath, nil
}

// Cleanup removes temporary media files, ignoring paths that are
// already gone.
func (p *Processor) Cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("Failed to delete media file", zap.String("path", path), zap.Error(err))
		}
	}
}
