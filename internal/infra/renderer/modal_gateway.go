package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shortform-video-orchestrator/internal/config"
	"shortform-video-orchestrator/internal/domain"
	"shortform-video-orchestrator/internal/domain/model"
	"shortform-video-orchestrator/internal/domain/ports/adapter"
	"shortform-video-orchestrator/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const (
	submitPath        = "/process"
	maxSubmitAttempts = 3
	backoffBase       = 500 * time.Millisecond
)

var _ adapter.RemoteRenderer = (*ModalGateway)(nil)

// ModalGateway submits render work to the Modal-hosted video processor
// over HTTP and validates the webhooks it sends back.
type ModalGateway struct {
	baseURL       string
	webhookSecret string
	callbackURL   string
	client        *http.Client
	log           *zerolog.Logger
}

func NewModalGateway(cfg *config.RendererConfig, logger *zerolog.Logger) *ModalGateway {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ModalGateway{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		webhookSecret: cfg.WebhookSecret,
		callbackURL:   cfg.CallbackURL,
		client:        &http.Client{Timeout: timeout},
		log:           logger,
	}
}

// submitPayload is the wire shape the remote processor expects: the
// video parameters nest under video_request, storage hints under
// storage_config.
type submitPayload struct {
	JobID         string               `json:"job_id"`
	VideoRequest  submitVideoRequest   `json:"video_request"`
	StorageConfig *submitStorageConfig `json:"storage_config,omitempty"`
	CallbackURL   string               `json:"callback_url,omitempty"`
}

type submitVideoRequest struct {
	AudioFileURL   string                 `json:"audio_file_url"`
	VideoAssets    []model.VideoAsset     `json:"video_assets"`
	ScriptSegments []model.ScriptSegment  `json:"script_segments,omitempty"`
	EffectsConfig  map[string]interface{} `json:"effects_config,omitempty"`
	CaptionsConfig map[string]interface{} `json:"captions_config,omitempty"`
	OutputConfig   map[string]interface{} `json:"output_config,omitempty"`
}

type submitStorageConfig struct {
	OutputBucket string `json:"output_bucket,omitempty"`
	OutputKey    string `json:"output_key,omitempty"`
}

type submitResponse struct {
	JobID    string `json:"job_id"`
	RemoteID string `json:"remote_id"`
	Status   string `json:"status"`
}

// Submit posts the render request, retrying transient failures with
// exponential backoff. The attempt budget covers everything: the first
// try plus retries never exceed maxSubmitAttempts requests.
func (g *ModalGateway) Submit(ctx context.Context, req *model.RenderRequest) (*model.RenderAck, error) {
	if g.baseURL == "" || g.webhookSecret == "" {
		return nil, domain.ErrRendererNotConfigured
	}

	payload := submitPayload{
		JobID: req.JobID,
		VideoRequest: submitVideoRequest{
			AudioFileURL:   req.AudioFileURL,
			VideoAssets:    req.VideoAssets,
			ScriptSegments: req.ScriptSegments,
			EffectsConfig:  req.EffectsConfig,
			CaptionsConfig: req.CaptionsConfig,
			OutputConfig:   req.OutputConfig,
		},
		CallbackURL: g.callbackURL,
	}
	if req.OutputBucket != "" || req.OutputKey != "" {
		payload.StorageConfig = &submitStorageConfig{
			OutputBucket: req.OutputBucket,
			OutputKey:    req.OutputKey,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	var lastStatus int
	var lastBody string
	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncRenderSubmitRetry()
			backoff := backoffBase << (attempt - 2)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		ack, status, respBody, err := g.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.log.Warn().Err(err).Str("job_id", req.JobID).Int("attempt", attempt).
				Msg("render submit attempt failed")
			lastStatus, lastBody = 0, err.Error()
			continue
		}

		switch {
		case status >= 200 && status < 300:
			if ack.JobID == "" {
				ack.JobID = req.JobID
			}
			return &model.RenderAck{JobID: ack.JobID, RemoteID: ack.RemoteID, Status: ack.Status}, nil
		case status >= 500:
			g.log.Warn().Str("job_id", req.JobID).Int("status", status).Int("attempt", attempt).
				Msg("render submit rejected by upstream")
			lastStatus, lastBody = status, respBody
			continue
		default:
			// 4xx means the request itself is bad; retrying cannot help.
			return nil, &domain.RemoteError{Status: status, Body: respBody, Attempts: attempt}
		}
	}

	return nil, &domain.RemoteError{Status: lastStatus, Body: lastBody, Attempts: maxSubmitAttempts}
}

func (g *ModalGateway) post(ctx context.Context, body []byte) (*submitResponse, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, string(respBody), nil
	}

	var ack submitResponse
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return nil, resp.StatusCode, string(respBody), fmt.Errorf("failed to unmarshal ack: %w", err)
	}
	return &ack, resp.StatusCode, string(respBody), nil
}
