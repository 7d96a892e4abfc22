package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Playwright/PlaywrightTable drive a real headless browser; their Mine
// methods aren't exercised here since that needs an actual Chrome binary.
// These tests pin down the contract the router depends on: names, cache
// invariants, and cost classification.

func TestPlaywrightNeverUsesCache(t *testing.T) {
	p := NewPlaywright()
	assert.Equal(t, "playwrightMiner", p.Name())
	assert.False(t, p.Capabilities().UseCache)
}

func TestPlaywrightTableNeverUsesCache(t *testing.T) {
	p := NewPlaywrightTable()
	assert.Equal(t, "playwrightTableMiner", p.Name())
	assert.False(t, p.Capabilities().UseCache)
	assert.False(t, p.Capabilities().OwnPagination)
}
