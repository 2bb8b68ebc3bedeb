package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPrompt(t *testing.T) {
	// Noon UTC on March 1 is still March 1 in New York.
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	prompt := BuildSystemPrompt(now)
	assert.Contains(t, prompt, "Today's date is 3/1/2024.")
	assert.Contains(t, prompt, "NBA")

	// Early-morning UTC rolls back a day in Eastern time.
	now = time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	assert.Contains(t, BuildSystemPrompt(now), "Today's date is 2/29/2024.")
}
