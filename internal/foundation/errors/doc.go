// Package errors provides the classified error primitives used across docsync.
//
// Errors carry a category (config, remote, conversion, ...), a severity and a
// retry hint, plus a free-form context map. Adapters translate them into HTTP
// responses and CLI exit codes.
//
// Example usage:
//
//	err := errors.RemoteError("list directory failed").
//		WithContext("status", resp.StatusCode).
//		WithContext("url", u).
//		Build()
package errors
