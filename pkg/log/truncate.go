package log

import "fmt"

const (
	// DefaultMaxBodySize is the maximum size for response bodies quoted in errors
	DefaultMaxBodySize = 1024
	// DefaultPreviewSize is the size of the preview shown for truncated bodies
	DefaultPreviewSize = 256
)

// TruncateBody truncates a response body if it exceeds maxSize.
// Returns the original string if within limit, otherwise a truncated format:
// [LARGE_BODY: truncated, size: %d bytes, preview: %s...]
func TruncateBody(body string, maxSize, previewSize int) string {
	bodyLen := len(body)
	if bodyLen <= maxSize {
		return body
	}

	if previewSize > bodyLen {
		previewSize = bodyLen
	} else if previewSize > maxSize {
		previewSize = maxSize
	}

	return fmt.Sprintf("[LARGE_BODY: truncated, size: %d bytes, preview: %s...]",
		bodyLen, body[:previewSize])
}

// TruncateBodyDefault truncates a response body using the default size limits.
func TruncateBodyDefault(body string) string {
	return TruncateBody(body, DefaultMaxBodySize, DefaultPreviewSize)
}
