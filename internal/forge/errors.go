package forge

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
)

const (
	ctxStatusCode = "status_code"
	ctxURL        = "url"
)

// ErrInvalidSignature signals a webhook delivery whose signature does not match.
var ErrInvalidSignature = errors.AuthError("Invalid signature").Build()

// statusError describes a non-2xx response. The message keeps the status code
// and text so it reads well when surfaced verbatim to trigger callers.
func statusError(resp *http.Response, url string) error {
	msg := fmt.Sprintf("GitHub API error: %s", resp.Status)
	var b *errors.ErrorBuilder
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		b = errors.AuthError(msg)
	case http.StatusNotFound:
		b = errors.NotFoundError(msg)
	default:
		b = errors.RemoteError(msg)
	}
	return b.WithContext(ctxStatusCode, resp.StatusCode).WithContext(ctxURL, url).Build()
}

// StatusCode extracts the HTTP status carried by a remote error anywhere in
// the chain, or 0.
func StatusCode(err error) int {
	for ; err != nil; err = stderrors.Unwrap(err) {
		ce, ok := err.(*errors.ClassifiedError)
		if !ok {
			continue
		}
		if v, ok := ce.Context().Get(ctxStatusCode); ok {
			code, _ := v.(int)
			return code
		}
	}
	return 0
}
