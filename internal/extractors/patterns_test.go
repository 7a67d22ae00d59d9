package extractors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternExtractorExtract(t *testing.T) {
	extractor := NewPatternExtractor(0)
	require.Equal(t, DefaultPatternSampleLimit, extractor.SampleLimit())

	found := extractor.Extract([]string{
		"GET /checkout 200 from 10.0.0.1 at 2024-01-02T03:04:05",
		"GET /checkout 200 from 10.0.0.1 at 2024-01-02 03:04:05",
		"no structure here",
	})

	for _, token := range []string{"200", "10.0.0.1", "2024-01-02T03:04:05", "2024-01-02 03:04:05"} {
		assert.Contains(t, found, token)
	}
	assert.Len(t, found, 4)
}

func TestPatternExtractorOctetsCountAsStatusCodes(t *testing.T) {
	found := NewPatternExtractor(10).Extract([]string{"peer 192.168.1.100 reset"})

	assert.Len(t, found, 4)
	assert.Contains(t, found, "192.168.1.100")
	assert.Contains(t, found, "168")
}

func TestPatternExtractorIgnoresOutOfRangeNumbers(t *testing.T) {
	found := NewPatternExtractor(10).Extract([]string{"took 999 ms, 042 retries, 1234 bytes"})
	assert.Empty(t, found)
}

func TestPatternExtractorSampleLimit(t *testing.T) {
	lines := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		lines = append(lines, fmt.Sprintf("status=%d", 100+i))
	}

	found := NewPatternExtractor(100).Extract(lines)
	assert.Len(t, found, 100)
	assert.Contains(t, found, "199")
	assert.NotContains(t, found, "200")
}
