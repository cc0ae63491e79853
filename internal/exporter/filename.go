package exporter

import (
	"strings"
	"time"
)

// DefaultStem names exports whose first line is unusable.
const DefaultStem = "Gemini_Export"

const maxStemRunes = 30

var stemStrip = strings.NewReplacer("#", "", "*", "")

var unsafeName = strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_", "\x00", "")

// Filename derives the saved file name from the document's first non-empty
// line and the date: "<stem>_YYYY-MM-DD.md".
func Filename(markdown string, now time.Time) string {
	stem := ""
	for _, line := range strings.Split(markdown, "\n") {
		if strings.TrimSpace(line) != "" {
			stem = line
			break
		}
	}
	stem = strings.TrimSpace(stemStrip.Replace(stem))
	if r := []rune(stem); len(r) > maxStemRunes {
		stem = string(r[:maxStemRunes])
	}
	stem = strings.TrimSpace(unsafeName.Replace(stem))
	if stem == "" || stem == "." {
		stem = DefaultStem
	}
	return stem + "_" + now.Format("2006-01-02") + ".md"
}
