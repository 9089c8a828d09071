package adapter

import (
	"context"

	"shortform-video-orchestrator/internal/domain/model"
)

// RemoteRenderer is the port for the external video rendering backend.
// Submit is synchronous-request/asynchronous-callback: it only acknowledges
// that the renderer accepted the work; results arrive later via webhooks.
type RemoteRenderer interface {
	// Submit hands the request to the renderer, retrying transient failures
	// internally. Returns domain.ErrRendererNotConfigured before any network
	// attempt when credentials/URL are missing, and *domain.RemoteError
	// after the retry budget is exhausted.
	Submit(ctx context.Context, req *model.RenderRequest) (*model.RenderAck, error)

	// VerifySignature checks an inbound webhook signature against the shared
	// secret. A bad signature is a false return, not an error; the only
	// error is a missing secret.
	VerifySignature(body []byte, signature string) (bool, error)
}
