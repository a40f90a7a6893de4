package output

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	SetWriter(&buf)

	Success("synced %d", 3)
	Warn("degraded")
	Fail("failed: %s", "boom")
	Field("invoice", "INV-1")

	s := buf.String()
	assert.Contains(t, s, "✓ synced 3")
	assert.Contains(t, s, "⚠ degraded")
	assert.Contains(t, s, "✗ failed: boom")
	assert.Contains(t, s, "invoice:")
	assert.Contains(t, s, "INV-1")
}

func TestResult(t *testing.T) {
	var buf bytes.Buffer
	SetWriter(&buf)

	JSON = false
	printed, err := Result(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.False(t, printed)
	assert.Empty(t, buf.String())

	JSON = true
	defer func() { JSON = false }()
	printed, err = Result(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.True(t, printed)
	assert.JSONEq(t, `{"n":1}`, buf.String())
}
