package qaports

import "context"

// TextExtractor pulls plain text out of an uploaded document (e.g. PDF).
// Extraction internals sit outside this module; the core only consumes the
// resulting text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) (string, error)
}
