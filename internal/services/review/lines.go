package review

import "strings"

// locateSnippet finds the 1-based line of a model-emitted code snippet inside
// a file, using four tiers in order:
//  1. exact first-line match, verified against the following snippet lines
//  2. fuzzy sliding-window match with >= 60% character overlap
//  3. distinctive-substring match (longest snippet token over 20 chars)
//  4. pattern probes for common constructs named in the snippet
//
// Returns 0 when nothing matches; callers must treat 0 as "line unknown"
// rather than guessing.
func locateSnippet(content, snippet string) int {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" || content == "" {
		return 0
	}

	lines := strings.Split(content, "\n")
	snippetLines := nonEmptyLines(snippet)
	if len(snippetLines) == 0 {
		return 0
	}

	if line := exactMatch(lines, snippetLines); line > 0 {
		return line
	}
	if line := fuzzyMatch(lines, snippetLines); line > 0 {
		return line
	}
	if line := distinctiveSubstringMatch(lines, snippetLines); line > 0 {
		return line
	}
	return patternProbe(lines, snippet)
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// exactMatch finds the snippet's first line and verifies subsequent snippet
// lines appear in order immediately after it
func exactMatch(lines, snippetLines []string) int {
	first := snippetLines[0]
	for i, line := range lines {
		if strings.TrimSpace(line) != first {
			continue
		}
		matched := true
		for j := 1; j < len(snippetLines) && i+j < len(lines); j++ {
			if strings.TrimSpace(lines[i+j]) != snippetLines[j] {
				matched = false
				break
			}
		}
		if matched {
			return i + 1
		}
	}
	return 0
}

// fuzzyMatch slides a window of the snippet's height over the file and
// scores character overlap; a window scoring >= 60% wins
func fuzzyMatch(lines, snippetLines []string) int {
	window := len(snippetLines)
	if window > len(lines) {
		return 0
	}
	target := strings.Join(snippetLines, "\n")

	bestLine, bestScore := 0, 0.0
	for i := 0; i+window <= len(lines); i++ {
		candidate := strings.TrimSpace(strings.Join(lines[i:i+window], "\n"))
		score := overlapRatio(target, candidate)
		if score > bestScore {
			bestScore = score
			bestLine = i + 1
		}
	}
	if bestScore >= 0.6 {
		return bestLine
	}
	return 0
}

// overlapRatio is the fraction of characters from the shorter string found
// in the longer one as a contiguous-bigram overlap approximation
func overlapRatio(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	matched := 0
	for i := 0; i+2 <= len(shorter); i += 2 {
		if strings.Contains(longer, shorter[i:i+2]) {
			matched += 2
		}
	}
	return float64(matched) / float64(len(shorter))
}

// distinctiveSubstringMatch picks the longest snippet fragment over 20 chars
// and searches for it verbatim
func distinctiveSubstringMatch(lines, snippetLines []string) int {
	longest := ""
	for _, line := range snippetLines {
		if len(line) > len(longest) {
			longest = line
		}
	}
	if len(longest) <= 20 {
		return 0
	}
	for i, line := range lines {
		if strings.Contains(line, longest) {
			return i + 1
		}
	}
	return 0
}

// patternProbe looks for a recognizable construct named in the snippet, such
// as a function definition or an assignment target
func patternProbe(lines []string, snippet string) int {
	probes := []string{}
	for _, prefix := range []string{"def ", "class ", "function ", "const ", "FROM "} {
		idx := strings.Index(snippet, prefix)
		if idx < 0 {
			continue
		}
		rest := snippet[idx+len(prefix):]
		end := 0
		for end < len(rest) && isIdentChar(rest[end]) {
			end++
		}
		if end > 0 {
			probes = append(probes, prefix+rest[:end])
		}
	}
	if eq := strings.Index(snippet, "="); eq > 0 {
		probes = append(probes, strings.TrimSpace(snippet[:eq]))
	}

	for _, probe := range probes {
		if len(probe) < 4 {
			continue
		}
		for i, line := range lines {
			if strings.Contains(line, probe) {
				return i + 1
			}
		}
	}
	return 0
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
