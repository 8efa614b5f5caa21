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
	replicateEndpoint = "https://api.replicate.com/v1/predictions"
	replicateModel    = "black-forest-labs/flux-schnell"
)

type (
	replicateSubmitRequest struct {
		Model string              `json:"model"`
		Input replicateModelInput `json:"input"`
	}
	replicateModelInput struct {
		Prompt string `json:"prompt"`
	}
	replicatePrediction struct {
		ID     string          `json:"id"`
		Status string          `json:"status"`
		Output json.RawMessage `json:"output,omitempty"`
		Error  string          `json:"error,omitempty"`
	}
)

// Replicate runs prediction-based image generation.
type Replicate struct {
	apiToken   string
	endpoint   string
	httpClient *http.Client
	poll       PollConfig
}

// NewReplicate builds the provider from an API token.
func NewReplicate(apiToken string) (*Replicate, error) {
	trimmed := strings.TrimSpace(apiToken)
	if trimmed == "" {
		return nil, errors.New("replicate api token is not configured")
	}
	return &Replicate{
		apiToken:   trimmed,
		endpoint:   replicateEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		poll:       DefaultPollConfig,
	}, nil
}

func (r *Replicate) ID() string {
	return ProviderReplicate
}

func (r *Replicate) GenerateImage(ctx context.Context, prompt string) (string, error) {
	log := providerLogger(ctx, ProviderReplicate, replicateModel)
	log.WithField("prompt_preview", logSnippet(prompt)).Info("replicate_generate_image_start")

	bodyBytes, err := json.Marshal(replicateSubmitRequest{
		Model: replicateModel,
		Input: replicateModelInput{Prompt: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+r.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit prediction: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("replicate http %d: %s", resp.StatusCode, logSnippet(string(body)))
	}

	var prediction replicatePrediction
	if err := json.Unmarshal(body, &prediction); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if prediction.ID == "" {
		return "", errors.New("replicate returned no prediction id")
	}

	url, err := WaitForJob(ctx, r, prediction.ID, r.poll)
	if err != nil {
		return "", err
	}

	log.WithField("prediction_id", prediction.ID).Info("replicate_generate_image_done")
	return url, nil
}

// PollJob implements JobPoller against the predictions endpoint.
func (r *Replicate) PollJob(ctx context.Context, jobID string) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+r.apiToken)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll prediction: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("replicate http %d: %s", resp.StatusCode, logSnippet(string(body)))
	}

	var prediction replicatePrediction
	if err := json.Unmarshal(body, &prediction); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch prediction.Status {
	case "succeeded":
		url := firstOutputURL(prediction.Output)
		if url == "" {
			return &Job{ID: jobID, State: JobFailed, Reason: "prediction succeeded without output"}, nil
		}
		return &Job{ID: jobID, State: JobSucceeded, Output: url}, nil
	case "failed", "canceled":
		return &Job{ID: jobID, State: JobFailed, Reason: prediction.Error}, nil
	default:
		return &Job{ID: jobID, State: JobPending}, nil
	}
}

// firstOutputURL tolerates both output shapes replicate uses: a bare
// string or a list of URLs.
func firstOutputURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return strings.TrimSpace(many[0])
	}
	return ""
}
