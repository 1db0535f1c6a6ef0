package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"name":   "  Acme ",
		"blank":  "   ",
		"count":  float64(7),
		"small":  3,
		"text":   "12",
		"flag":   true,
		"sflag":  "true",
		"number": 4,
	}
	assert.Equal(t, "Acme", String(args, "name", "x"))
	assert.Equal(t, "x", String(args, "blank", "x"))
	assert.Equal(t, "x", String(args, "number", "x"))
	assert.Equal(t, "x", String(args, "missing", "x"))

	assert.Equal(t, 7, Int(args, "count", 1))
	assert.Equal(t, 3, Int(args, "small", 1))
	assert.Equal(t, 12, Int(args, "text", 1))
	assert.Equal(t, 1, Int(args, "name", 1))

	assert.True(t, Bool(args, "flag"))
	assert.True(t, Bool(args, "sflag"))
	assert.False(t, Bool(args, "missing"))
}
