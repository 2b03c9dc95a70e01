package answer

import "strings"

const (
	// DefaultAnswer is used when the model response has no "## Answer" section.
	DefaultAnswer = "Sorry, I couldn't find a direct answer. Please try rephrasing."
	// DefaultConfidence is used when the response has no "## Confidence Score" section.
	DefaultConfidence = "0%"
)

const (
	headingAnswer     = "## Answer"
	headingConfidence = "## Confidence Score"
	headingTopics     = "## Related Topics"
)

// StructuredAnswer is the parsed form of a completed model response.
type StructuredAnswer struct {
	Answer     string   `json:"answer"`
	Confidence string   `json:"confidence"`
	Topics     []string `json:"topics"`
}

// Parse extracts the three sections from a model response. Each section is
// looked up independently and falls back to its default when absent, so Parse
// never fails.
func Parse(text string) StructuredAnswer {
	lines := strings.Split(normalizeNewlines(text), "\n")

	result := StructuredAnswer{
		Answer:     DefaultAnswer,
		Confidence: DefaultConfidence,
		Topics:     []string{},
	}

	if body, ok := section(lines, headingAnswer); ok {
		result.Answer = strings.TrimSpace(body)
	}
	if body, ok := section(lines, headingConfidence); ok {
		result.Confidence = strings.TrimSpace(body)
	}
	if body, ok := section(lines, headingTopics); ok {
		result.Topics = parseTopics(body)
	}

	return result
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// section returns the body under the first line that ends with heading
// (ignoring trailing whitespace). The body stops at the next line starting
// with "##".
func section(lines []string, heading string) (string, bool) {
	start := -1
	// A heading on the final line has no newline after it and does not count.
	for i, line := range lines[:max(len(lines)-1, 0)] {
		if isHeading(line, heading) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", false
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "##") {
			end = i
			break
		}
	}

	return strings.Join(lines[start:end], "\n"), true
}

// isHeading accepts the marker anywhere on the line, so "### Answer",
// "  ## Answer" and "Sure! ## Answer" all count, but "## Answers" does not.
func isHeading(line, heading string) bool {
	i := strings.LastIndex(line, heading)
	if i < 0 {
		return false
	}
	return strings.TrimSpace(line[i+len(heading):]) == ""
}

func parseTopics(body string) []string {
	topics := []string{}
	for _, line := range strings.Split(body, "\n") {
		topic := stripMarker(strings.TrimSpace(line))
		if topic == "" {
			continue
		}
		topics = append(topics, topic)
	}
	return topics
}

// stripMarker removes one leading list marker. A hyphen may be glued to the
// text ("-Osmosis"); the other markers need a following space so emphasis such
// as "**Osmosis**" is left alone.
func stripMarker(topic string) string {
	if rest, ok := strings.CutPrefix(topic, "-"); ok {
		return strings.TrimSpace(rest)
	}
	for _, marker := range []string{"*", "+", "•"} {
		rest, ok := strings.CutPrefix(topic, marker)
		if !ok {
			continue
		}
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			return strings.TrimSpace(rest)
		}
	}
	return topic
}
