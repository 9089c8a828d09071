package renderer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"shortform-video-orchestrator/internal/domain"
)

// VerifySignature checks a webhook body against its X-Webhook-Signature
// header: hex(HMAC-SHA256(secret, rawBody)), optionally prefixed with
// "sha256=". Comparison is constant-time.
func (g *ModalGateway) VerifySignature(body []byte, signature string) (bool, error) {
	if g.webhookSecret == "" {
		return false, domain.ErrRendererNotConfigured
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return false, nil
	}

	h := hmac.New(sha256.New, []byte(g.webhookSecret))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))), nil
}
