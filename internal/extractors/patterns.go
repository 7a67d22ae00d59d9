package extractors

import "regexp"

// DefaultPatternSampleLimit caps how many lines are mined for structural tokens.
const DefaultPatternSampleLimit = 100

var structuralPatterns = []*regexp.Regexp{
	// HTTP-status-like tokens. Any standalone 3-digit number in 100-599 matches,
	// including IPv4 octets and durations.
	regexp.MustCompile(`\b[1-5]\d{2}\b`),
	// Dotted-quad IPv4-shaped tokens, octet ranges unchecked.
	regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	// ISO-like date-time prefixes.
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`),
}

// PatternExtractor mines cheap structural tokens (status codes, IPs,
// timestamps) from log lines. The distinct-token count is a diversity proxy,
// not a semantic template miner.
type PatternExtractor struct {
	sampleLimit int
}

// NewPatternExtractor constructs an extractor scanning at most sampleLimit
// lines; non-positive limits fall back to 100.
func NewPatternExtractor(sampleLimit int) *PatternExtractor {
	if sampleLimit <= 0 {
		sampleLimit = DefaultPatternSampleLimit
	}
	return &PatternExtractor{sampleLimit: sampleLimit}
}

// SampleLimit returns the configured line cap.
func (e *PatternExtractor) SampleLimit() int {
	return e.sampleLimit
}

// Extract returns the set of distinct tokens found in the sampled lines.
func (e *PatternExtractor) Extract(lines []string) map[string]struct{} {
	if len(lines) > e.sampleLimit {
		lines = lines[:e.sampleLimit]
	}

	found := make(map[string]struct{})
	for _, line := range lines {
		for _, re := range structuralPatterns {
			for _, token := range re.FindAllString(line, -1) {
				found[token] = struct{}{}
			}
		}
	}
	return found
}
