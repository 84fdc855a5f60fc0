package aihub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/luocen/notelens/internal/config"
)

type (
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	transcriptionResponse struct {
		Text string `json:"text"`
	}

	chatCompletionRequest struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}

	chatCompletionResponse struct {
		ID      string   `json:"id"`
		Model   string   `json:"model"`
		Choices []choice `json:"choices"`
		Usage   *usage   `json:"usage"`
	}

	choice struct {
		Index        int             `json:"index"`
		Message      responseMessage `json:"message"`
		FinishReason string          `json:"finish_reason"`
	}

	responseMessage struct {
		Role             string `json:"role"`
		Content          string `json:"content"`
		ReasoningContent string `json:"reasoning_content"`
	}

	usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}
)

// Client wraps the speech-to-text and chat completion endpoints of an
// OpenAI-compatible API.
type Client struct {
	config *config.AIConfig
	logger *zap.Logger

	chatClient       *http.Client
	transcribeClient *http.Client
}

func NewClient(cfg *config.AIConfig, logger *zap.Logger) *Client {
	return &Client{
		config: cfg,
		logger: logger,
		chatClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		transcribeClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Transcribe uploads an audio file and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, audioPath, model string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	if err := writer.WriteField("model", model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	url := c.config.APIBaseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.transcribeClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Text == "" {
		return "", fmt.Errorf("transcription API returned empty text")
	}
	return response.Text, nil
}

// ChatCompletion sends a role-tagged prompt pair and returns the first
// choice's content.
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []Message) (string, error) {
	if model == "" {
		model = c.config.CompletionModel
	}

	jsonBody, err := json.Marshal(chatCompletionRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := c.config.APIBaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.chatClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("completion API returned no content")
	}
	return response.Choices[0].Message.Content, nil
}
