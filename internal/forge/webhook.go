package forge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// SignatureHeader carries the HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Hub-Signature-256"

// EventHeader names the webhook event type.
const EventHeader = "X-GitHub-Event"

const signaturePrefix = "sha256="

// ValidateSignature reports whether signature ("sha256=<hex>") matches the
// HMAC-SHA256 of payload under secret. Empty signatures or secrets never match.
func ValidateSignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" || !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(Sign(payload, secret)))
}

// Sign returns the "sha256=<hex>" signature GitHub would send for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// PushEvent is the subset of a push or release delivery used to route syncs.
type PushEvent struct {
	Repository string // owner/repo
	Ref        string
	Branch     string
	Tag        string
}

type githubPushPayload struct {
	Ref        string `json:"ref"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// ParsePushEvent extracts the repository and ref of a webhook payload. Ping
// and release payloads carry a repository but no ref.
func ParsePushEvent(payload []byte) (*PushEvent, error) {
	var p githubPushPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	ev := &PushEvent{Repository: p.Repository.FullName, Ref: p.Ref}
	switch {
	case strings.HasPrefix(p.Ref, "refs/heads/"):
		ev.Branch = strings.TrimPrefix(p.Ref, "refs/heads/")
	case strings.HasPrefix(p.Ref, "refs/tags/"):
		ev.Tag = strings.TrimPrefix(p.Ref, "refs/tags/")
	}
	return ev, nil
}
