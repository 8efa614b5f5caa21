package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	falQueueEndpoint = "https://queue.fal.run/fal-ai/flux/schnell"
	falModel         = "fal-ai/flux/schnell"
)

type (
	falSubmitRequest struct {
		Prompt string `json:"prompt"`
	}
	falQueueStatus struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	falResultImage struct {
		URL string `json:"url"`
	}
	falResult struct {
		Images []falResultImage `json:"images"`
		Detail string           `json:"detail,omitempty"`
	}
)

// Fal submits queue jobs to fal.ai and polls for the rendered image.
type Fal struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	poll       PollConfig
}

// NewFal builds the provider from an API key.
func NewFal(apiKey string) (*Fal, error) {
	trimmed := strings.TrimSpace(apiKey)
	if trimmed == "" {
		return nil, errors.New("fal api key is not configured")
	}
	return &Fal{
		apiKey:     trimmed,
		endpoint:   falQueueEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		poll:       DefaultPollConfig,
	}, nil
}

func (f *Fal) ID() string {
	return ProviderFal
}

func (f *Fal) GenerateImage(ctx context.Context, prompt string) (string, error) {
	log := providerLogger(ctx, ProviderFal, falModel)
	log.WithField("prompt_preview", logSnippet(prompt)).Info("fal_generate_image_start")

	bodyBytes, err := json.Marshal(falSubmitRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	body, status, err := f.doRequest(ctx, http.MethodPost, f.endpoint, bodyBytes)
	if err != nil {
		return "", fmt.Errorf("submit queue job: %w", err)
	}
	if status >= 400 {
		return "", fmt.Errorf("fal http %d: %s", status, logSnippet(string(body)))
	}

	var queued falQueueStatus
	if err := json.Unmarshal(body, &queued); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if queued.RequestID == "" {
		return "", errors.New("fal returned no request id")
	}

	url, err := WaitForJob(ctx, f, queued.RequestID, f.poll)
	if err != nil {
		return "", err
	}

	log.WithField("request_id", queued.RequestID).Info("fal_generate_image_done")
	return url, nil
}

// PollJob checks queue status, then fetches the result once completed.
func (f *Fal) PollJob(ctx context.Context, jobID string) (*Job, error) {
	body, status, err := f.doRequest(ctx, http.MethodGet, f.endpoint+"/requests/"+jobID+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("poll queue: %w", err)
	}
	if status >= 400 {
		return nil, fmt.Errorf("fal http %d: %s", status, logSnippet(string(body)))
	}

	var queueStatus falQueueStatus
	if err := json.Unmarshal(body, &queueStatus); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch queueStatus.Status {
	case "COMPLETED":
		return f.fetchResult(ctx, jobID)
	case "IN_QUEUE", "IN_PROGRESS":
		return &Job{ID: jobID, State: JobPending}, nil
	default:
		return &Job{ID: jobID, State: JobFailed, Reason: "queue status " + queueStatus.Status}, nil
	}
}

func (f *Fal) fetchResult(ctx context.Context, jobID string) (*Job, error) {
	body, status, err := f.doRequest(ctx, http.MethodGet, f.endpoint+"/requests/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	if status >= 400 {
		return nil, fmt.Errorf("fal http %d: %s", status, logSnippet(string(body)))
	}

	var result falResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Images) == 0 || result.Images[0].URL == "" {
		reason := result.Detail
		if reason == "" {
			reason = "result contained no images"
		}
		return &Job{ID: jobID, State: JobFailed, Reason: reason}, nil
	}
	return &Job{ID: jobID, State: JobSucceeded, Output: result.Images[0].URL}, nil
}

func (f *Fal) doRequest(ctx context.Context, method, url string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Key "+f.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return respBody, resp.StatusCode, nil
}
