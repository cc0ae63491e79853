package markdown

import (
	"regexp"
	"strings"
)

var (
	hspaceRun      = regexp.MustCompile(`[ \t]+`)
	listIndent     = regexp.MustCompile(`^( +)- `)
	spaceBeforeDot = regexp.MustCompile(` ([.,])`)
	spaceMarker    = regexp.MustCompile(` \[\^`)
	splitMarkers   = regexp.MustCompile(`(\[\^\d+\])[ \t]+(\[\^\d+\])`)
	blankRun       = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes an assembled document: horizontal whitespace runs become
// one space, stray spaces before punctuation and footnote markers go away,
// and blank-line runs shrink to one blank line. List indentation and fenced
// code are left as they are; a fence is set off from prose by one blank line.
func Clean(doc string) string {
	var parts, prose, fence []string
	flush := func() {
		if len(prose) > 0 {
			if s := strings.Trim(cleanProse(prose), "\n"); s != "" {
				parts = append(parts, s)
			}
			prose = nil
		}
	}

	for _, line := range strings.Split(doc, "\n") {
		isFence := strings.HasPrefix(strings.TrimLeft(line, " \t"), "```")
		switch {
		case fence != nil:
			fence = append(fence, line)
			if isFence {
				parts = append(parts, strings.Join(fence, "\n"))
				fence = nil
			}
		case isFence:
			flush()
			fence = []string{line}
		default:
			prose = append(prose, line)
		}
	}
	// unterminated fence
	if fence != nil {
		parts = append(parts, strings.Join(fence, "\n"))
	}
	flush()
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func cleanProse(lines []string) string {
	cleaned := make([]string, len(lines))
	for i, line := range lines {
		indent := ""
		if m := listIndent.FindStringSubmatch(line); m != nil {
			indent = m[1]
			line = line[len(indent):]
		}
		line = hspaceRun.ReplaceAllString(line, " ")
		if strings.TrimSpace(line) == "" {
			cleaned[i] = ""
			continue
		}
		cleaned[i] = indent + line
	}
	s := strings.Join(cleaned, "\n")
	s = spaceBeforeDot.ReplaceAllString(s, "$1")
	s = spaceMarker.ReplaceAllString(s, "[^")
	s = splitMarkers.ReplaceAllString(s, "$1$2")
	return blankRun.ReplaceAllString(s, "\n\n")
}
