package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelativeTime(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "now", relativeTime(now.Add(-30*time.Second)))
	assert.Equal(t, "5m", relativeTime(now.Add(-5*time.Minute)))
	assert.Equal(t, "3h", relativeTime(now.Add(-3*time.Hour)))
	assert.Equal(t, "2d", relativeTime(now.Add(-49*time.Hour)))
}

func TestFitString(t *testing.T) {
	assert.Equal(t, "", fitString("hello", 0))
	assert.Equal(t, "h", fitString("hello", 1))
	assert.Equal(t, "hel…", fitString("hello", 4))
	assert.Equal(t, "hello", fitString("hello", 5))
	assert.Equal(t, "héllo", fitString("héllo", 5))
}
