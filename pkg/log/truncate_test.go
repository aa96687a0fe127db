package log

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateBodyWithinLimit(t *testing.T) {
	body := "short body"
	assert.Equal(t, body, TruncateBody(body, 100, 50))
}

func TestTruncateBodyOverLimit(t *testing.T) {
	body := strings.Repeat("x", 200)
	got := TruncateBody(body, 100, 10)

	assert.Contains(t, got, "size: 200 bytes")
	assert.Contains(t, got, "preview: "+strings.Repeat("x", 10)+"...")
	assert.Less(t, len(got), 200)
}

func TestTruncateBodyPreviewClampedToMax(t *testing.T) {
	body := strings.Repeat("y", 50)
	got := TruncateBody(body, 10, 40)

	// preview never exceeds the max size
	assert.Contains(t, got, "preview: "+strings.Repeat("y", 10)+"...")
}

func TestTruncateBodyDefault(t *testing.T) {
	small := strings.Repeat("a", DefaultMaxBodySize)
	assert.Equal(t, small, TruncateBodyDefault(small))

	large := strings.Repeat("a", DefaultMaxBodySize+1)
	assert.Contains(t, TruncateBodyDefault(large), "LARGE_BODY")
}
