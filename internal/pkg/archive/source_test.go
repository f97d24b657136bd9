package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The archive package owns its own database-backed log source so the queue
// worker can build an archiver without going through the repository layer.
func TestNewGormLogSourceSatisfiesLogSource(t *testing.T) {
	var source LogSource = NewGormLogSource(nil)
	assert.NotNil(t, source)
}

func TestObjectKeyFormat(t *testing.T) {
	c := &Config{}
	assert.Equal(t, "usage-logs/2026/07.jsonl", c.ObjectKey(2026, 7))
	assert.Equal(t, "usage-logs/2026/12.jsonl", c.ObjectKey(2026, 12))
}
