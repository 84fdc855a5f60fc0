package xiaohongshu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luocen/notelens/internal/config"
)

const searchHost = "https://edith.xiaohongshu.com"

// Client wraps the platform's HTTP surface: feed listing and note
// detail go through the collection API, keyword search talks to the
// platform directly using the task's cookie.
type Client struct {
	config *config.XiaohongshuConfig
	logger *zap.Logger
	client *http.Client
}

func NewClient(cfg *config.XiaohongshuConfig, logger *zap.Logger) *Client {
	tr := &http.Transport{
		IdleConnTimeout:       120 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		TLSHandshakeTimeout:   20 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
	}
	return &Client{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Transport: tr,
			Timeout:   30 * time.Second,
		},
	}
}

// FetchUserPosts lists a creator's recent notes.
func (c *Client) FetchUserPosts(ctx context.Context, creatorID, cookie string) (*UserPostsResponse, error) {
	body := map[string]any{
		"user_id": creatorID,
		"cookie":  cookie,
	}

	var response UserPostsResponse
	if err := c.postJSON(ctx, c.config.APIBaseURL+"/user/post", body, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch user posts: %w", err)
	}
	return &response, nil
}

// FetchNoteDetail resolves the full content of one note. The URL must
// carry a valid access token unless the note is publicly addressable.
func (c *Client) FetchNoteDetail(ctx context.Context, noteURL, cookie string) (*NoteDetailResponse, error) {
	body := map[string]any{
		"url":    noteURL,
		"cookie": cookie,
	}

	var response NoteDetailResponse
	if err := c.postJSON(ctx, c.config.APIBaseURL+"/note/detail", body, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch note detail: %w", err)
	}
	return &response, nil
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("collection API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Search runs one page of keyword search against the platform.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchItem, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}
	if req.Sort == "" {
		req.Sort = SortGeneral
	}

	body := map[string]any{
		"keyword":   req.Keyword,
		"page":      req.Page,
		"page_size": req.PageSize,
		"search_id": uuid.NewString(),
		"sort":      string(req.Sort),
		"note_type": int(req.NoteType),
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		searchHost+"/api/sns/web/v1/search/notes", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36")
	httpReq.Header.Set("Origin", webDomain)
	httpReq.Header.Set("Referer", webDomain+"/")
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	httpReq.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Cookie != "" {
		httpReq.Header.Set("Cookie", req.Cookie)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if !response.Success {
		return nil, fmt.Errorf("search API returned error: %s", response.Msg)
	}
	if response.Data == nil {
		return nil, nil
	}
	return response.Data.Items, nil
}
