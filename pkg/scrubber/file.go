package scrubber

import (
	"strings"

	"github.com/rhuss/scrubgate/pkg/patterns"
	"github.com/rhuss/scrubgate/pkg/tokenizer"
)

// FileResult is the outcome of scrubbing a whole file line by line.
type FileResult struct {
	SanitizedText  string         `json:"sanitized_text"`
	LinesProcessed int            `json:"lines_processed"`
	ItemsScrubbed  int            `json:"items_scrubbed"`
	Summary        map[string]int `json:"summary"`
}

// ScrubFile runs Scrub over each line of text independently, sharing one
// Tokenizer across the whole file so that a repeated value yields a
// single placeholder file-wide. It always scrubs against the merged
// prompt+log vocabulary (patterns.Union()), per spec §4.3's file-mode
// variant.
func ScrubFile(text string, tok *tokenizer.Tokenizer) FileResult {
	itemTypes := patterns.Union()
	lines := strings.Split(text, "\n")

	summary := make(map[string]int)
	items := 0
	sanitizedLines := make([]string, len(lines))

	for i, line := range lines {
		res := Scrub(line, itemTypes, tok)
		sanitizedLines[i] = res.SanitizedText
		items += len(res.Replacements)
		for itemType, count := range res.Summary {
			summary[itemType] += count
		}
	}

	return FileResult{
		SanitizedText:  strings.Join(sanitizedLines, "\n"),
		LinesProcessed: len(lines),
		ItemsScrubbed:  items,
		Summary:        summary,
	}
}
