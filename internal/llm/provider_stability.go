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

type (
	stabilitySubmitRequest struct {
		Prompt       string `json:"prompt"`
		OutputFormat string `json:"output_format"`
	}
	stabilitySubmitResponse struct {
		ID      string `json:"id"`
		Message string `json:"message,omitempty"`
	}
	stabilityJobResponse struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		ImageURL     string `json:"image_url"`
		FinishReason string `json:"finish_reason"`
		Message      string `json:"message,omitempty"`
	}
)

// Stability talks to a Stability AI generation endpoint through one
// concrete base URL. Two routed wrappers share this core: the proxy
// route and the direct route differ only in the URL they hit and the
// provider ID they report, so a network problem on one path does not
// take out the other.
type Stability struct {
	providerID string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	poll       PollConfig
}

func newStability(providerID, baseURL, apiKey string) (*Stability, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, fmt.Errorf("%s base url is not configured", providerID)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%s api key is not configured", providerID)
	}
	return &Stability{
		providerID: providerID,
		baseURL:    trimmedURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		poll:       DefaultPollConfig,
	}, nil
}

// NewStabilityViaProxy routes generation through the caching proxy.
func NewStabilityViaProxy(proxyURL, apiKey string) (*Stability, error) {
	return newStability(ProviderStabilityProxy, proxyURL, apiKey)
}

// NewStabilityDirect talks to the Stability API without the proxy.
func NewStabilityDirect(directURL, apiKey string) (*Stability, error) {
	return newStability(ProviderStabilityDirect, directURL, apiKey)
}

func (s *Stability) ID() string {
	return s.providerID
}

// GenerateImage submits a generation job and polls it to completion.
func (s *Stability) GenerateImage(ctx context.Context, prompt string) (string, error) {
	log := providerLogger(ctx, s.providerID, "stable-image-core")
	log.WithField("prompt_preview", logSnippet(prompt)).Info("stability_generate_image_start")

	jobID, err := s.submit(ctx, prompt)
	if err != nil {
		return "", err
	}

	url, err := WaitForJob(ctx, s, jobID, s.poll)
	if err != nil {
		return "", err
	}

	log.WithField("job_id", jobID).Info("stability_generate_image_done")
	return url, nil
}

func (s *Stability) submit(ctx context.Context, prompt string) (string, error) {
	bodyBytes, err := json.Marshal(stabilitySubmitRequest{Prompt: prompt, OutputFormat: "png"})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2beta/stable-image/generate/core", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("stability http %d: %s", resp.StatusCode, logSnippet(string(body)))
	}

	var parsed stabilitySubmitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.ID == "" {
		return "", errors.New("stability returned no job id")
	}
	return parsed.ID, nil
}

// PollJob implements JobPoller for the generation endpoint.
func (s *Stability) PollJob(ctx context.Context, jobID string) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v2beta/results/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll job: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// 202 means the job is still in flight.
	if resp.StatusCode == http.StatusAccepted {
		return &Job{ID: jobID, State: JobPending}, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stability http %d: %s", resp.StatusCode, logSnippet(string(body)))
	}

	var parsed stabilityJobResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch strings.ToLower(parsed.Status) {
	case "", "succeeded", "complete", "completed":
		if parsed.FinishReason != "" && !strings.EqualFold(parsed.FinishReason, "success") {
			return &Job{ID: jobID, State: JobFailed, Reason: parsed.FinishReason}, nil
		}
		if parsed.ImageURL == "" {
			return &Job{ID: jobID, State: JobFailed, Reason: "job succeeded without an image url"}, nil
		}
		return &Job{ID: jobID, State: JobSucceeded, Output: parsed.ImageURL}, nil
	case "failed", "errored":
		reason := parsed.Message
		if reason == "" {
			reason = parsed.FinishReason
		}
		return &Job{ID: jobID, State: JobFailed, Reason: reason}, nil
	default:
		return &Job{ID: jobID, State: JobPending}, nil
	}
}
