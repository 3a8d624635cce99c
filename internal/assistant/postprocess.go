package assistant

import (
	"strings"
	"unicode"
)

const maxQuestions = 3

// truncateWords keeps at most limit whitespace-separated words of s.
// Shorter input is returned trimmed but otherwise unchanged.
func truncateWords(s string, limit int) string {
	s = strings.TrimSpace(s)
	words := 0
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
			if words > limit {
				return strings.TrimRightFunc(s[:i], unicode.IsSpace)
			}
		}
	}
	return s
}

// parseQuestions splits model output into at most limit questions. List
// markers and blank lines are dropped. Lines ending in "?" are preferred;
// other lines are used only when no line is a question.
func parseQuestions(out string, limit int) []string {
	var questions, others []string
	for _, line := range strings.Split(out, "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "?") {
			questions = append(questions, line)
		} else {
			others = append(others, line)
		}
	}
	if len(questions) == 0 {
		questions = others
	}
	if len(questions) > limit {
		questions = questions[:limit]
	}
	return questions
}

// stripListMarker removes a leading "1.", "2)", "-", "*" or "•" marker.
func stripListMarker(line string) string {
	for _, m := range []string{"-", "*", "•"} {
		if line == m {
			return ""
		}
		if strings.HasPrefix(line, m+" ") {
			return strings.TrimSpace(line[len(m)+1:])
		}
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')' || line[i] == ':') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
