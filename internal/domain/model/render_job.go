package model

import "time"

type RenderJobStatus string

const (
	RenderJobStatusQueued     RenderJobStatus = "queued"
	RenderJobStatusProcessing RenderJobStatus = "processing"
	RenderJobStatusCompleted  RenderJobStatus = "completed"
	RenderJobStatusFailed     RenderJobStatus = "failed"
	RenderJobStatusCancelled  RenderJobStatus = "cancelled"
)

func (s RenderJobStatus) IsTerminal() bool {
	switch s {
	case RenderJobStatusCompleted, RenderJobStatusFailed, RenderJobStatusCancelled:
		return true
	}
	return false
}

// RenderMetadata describes the produced file, reported by the renderer in
// its completion callback.
type RenderMetadata struct {
	DurationSeconds float64 `json:"duration,omitempty"`
	FileSizeBytes   int64   `json:"file_size,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	Codec           string  `json:"codec,omitempty"`
	Bitrate         string  `json:"bitrate,omitempty"`
	AudioChannels   int     `json:"audio_channels,omitempty"`
	AudioSampleRate int     `json:"audio_sample_rate,omitempty"`
}

// RenderJob is the gateway's own bookkeeping for one hand-off to the
// remote renderer, keyed by the external job id. It is a narrower state
// machine than Job and is reconciled into the general job by the webhook
// layer, never merged into the same record.
type RenderJob struct {
	JobID           string          `json:"jobId"`
	Status          RenderJobStatus `json:"status"`
	Progress        int             `json:"progress"`
	CurrentStage    string          `json:"currentStage,omitempty"`
	ProgressMessage string          `json:"progressMessage,omitempty"`
	OutputURL       string          `json:"outputUrl,omitempty"`
	Metadata        *RenderMetadata `json:"metadata,omitempty"`
	Error           *string         `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// VideoAsset is one stock clip or image the renderer stitches into the
// final video.
type VideoAsset struct {
	AssetURL   string  `json:"asset_url"`
	AssetType  string  `json:"asset_type,omitempty"`
	SceneIndex int     `json:"scene_index"`
	Duration   float64 `json:"duration,omitempty"`
}

// ScriptSegment carries narration text with its timing window, used by the
// renderer for captions.
type ScriptSegment struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// RenderRequest is everything the renderer needs to assemble one video.
type RenderRequest struct {
	JobID          string                 `json:"jobId"`
	AudioFileURL   string                 `json:"audioFileUrl"`
	VideoAssets    []VideoAsset           `json:"videoAssets"`
	ScriptSegments []ScriptSegment        `json:"scriptSegments,omitempty"`
	EffectsConfig  map[string]interface{} `json:"effectsConfig,omitempty"`
	CaptionsConfig map[string]interface{} `json:"captionsConfig,omitempty"`
	OutputConfig   map[string]interface{} `json:"outputConfig,omitempty"`
	OutputBucket   string                 `json:"outputBucket,omitempty"`
	OutputKey      string                 `json:"outputKey,omitempty"`
}

// RenderAck is the renderer's synchronous acknowledgement of a submission.
// Real results always arrive later through webhooks.
type RenderAck struct {
	JobID    string `json:"jobId"`
	RemoteID string `json:"remoteId,omitempty"`
	Status   string `json:"status"`
}

// RenderProgress is the decoded progress webhook payload. Progress is the
// renderer's native [0,1] fraction.
type RenderProgress struct {
	JobID        string  `json:"job_id"`
	Stage        string  `json:"stage"`
	Progress     float64 `json:"progress"`
	Message      string  `json:"message,omitempty"`
	CurrentScene int     `json:"current_scene,omitempty"`
	TotalScenes  int     `json:"total_scenes,omitempty"`
}

// RenderCompletion is the decoded completion webhook payload. Status is
// "completed" or "failed"; OutputURL/Metadata accompany success, Error
// accompanies failure.
type RenderCompletion struct {
	JobID     string          `json:"job_id"`
	Status    string          `json:"status"`
	OutputURL string          `json:"output_url,omitempty"`
	Metadata  *RenderMetadata `json:"metadata,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// QueueStats tallies render jobs per status for the queue overview.
type QueueStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}
