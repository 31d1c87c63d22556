package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errEmptyResponse = errors.New("no insights in response")

// stripFences returns the body of the first ``` block, or s unchanged when
// there is none. A leading language tag is dropped.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "```", 3)
	if len(parts) < 2 {
		return s
	}
	body := strings.TrimPrefix(parts[1], "json")
	return strings.TrimSpace(body)
}

// ParseInsights decodes a completion into insights. Entries without a title
// are dropped and unknown severities become info.
func ParseInsights(content string) ([]Insight, error) {
	var raw []Insight
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}

	out := make([]Insight, 0, len(raw))
	for _, in := range raw {
		if strings.TrimSpace(in.Title) == "" {
			continue
		}
		if !validSeverity(in.Severity) {
			in.Severity = SeverityInfo
		}
		if in.Category == "" {
			in.Category = CategoryGeneral
		}
		out = append(out, in)
	}
	if len(out) == 0 {
		return nil, errEmptyResponse
	}
	return out, nil
}
