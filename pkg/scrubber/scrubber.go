// Package scrubber implements the deterministic, span-resolving text
// scrubber: regex-based candidate extraction, longest-span-wins overlap
// resolution, and placeholder substitution via a shared Tokenizer.
package scrubber

import (
	"sort"

	"github.com/rhuss/scrubgate/pkg/patterns"
	"github.com/rhuss/scrubgate/pkg/tokenizer"
)

// Replacement records one accepted substitution.
type Replacement struct {
	Placeholder string `json:"placeholder"`
	ItemType    string `json:"item_type"`
}

// Result is the outcome of scrubbing one piece of text.
type Result struct {
	SanitizedText string         `json:"sanitized_text"`
	Replacements  []Replacement  `json:"replacements"`
	Summary       map[string]int `json:"summary"`
}

// candidate is a single regex match awaiting overlap resolution.
type candidate struct {
	start, end int
	value      string
	itemType   string
}

// Scrub runs the scrubbing algorithm over text for the given item
// types, using tok to assign placeholders. Unknown item types (not in
// the pattern set) are skipped without error. An empty itemTypes slice
// returns text unchanged with no replacements and an empty summary.
//
// Scrub is a pure function of (text, itemTypes, tok's current state):
// calling it again with the same tok continues to assign placeholders
// deterministically from where the shared Tokenizer left off.
func Scrub(text string, itemTypes []string, tok *tokenizer.Tokenizer) Result {
	candidates := collectCandidates(text, itemTypes)
	accepted := resolveOverlaps(candidates)

	summary := make(map[string]int)
	replacements := make([]Replacement, 0, len(accepted))

	// Tokenize in start-ascending order so that, for ties in length
	// during overlap resolution, first-seen-in-text order also governs
	// first-seen-in-Tokenizer order (stable placeholder numbering).
	ordered := make([]candidate, len(accepted))
	copy(ordered, accepted)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].start < ordered[j].start })

	placeholderByStart := make(map[int]string, len(ordered))
	for _, c := range ordered {
		p, ok := patterns.Lookup(c.itemType)
		if !ok {
			continue
		}
		placeholder := tok.Tokenize(c.value, p.Prefix)
		placeholderByStart[c.start] = placeholder
		replacements = append(replacements, Replacement{Placeholder: placeholder, ItemType: c.itemType})
		summary[c.itemType]++
	}

	sanitized := applyReplacements(text, ordered, placeholderByStart)

	return Result{
		SanitizedText: sanitized,
		Replacements:  replacements,
		Summary:       summary,
	}
}

// collectCandidates runs every requested, known item type's pattern
// over text and emits one candidate per non-empty match.
func collectCandidates(text string, itemTypes []string) []candidate {
	var candidates []candidate

	for _, itemType := range itemTypes {
		p, ok := patterns.Lookup(itemType)
		if !ok {
			continue // unknown item_type is skipped without error (spec §8 property 5)
		}

		matches := p.Regexp.FindAllStringSubmatchIndex(text, -1)
		for _, m := range matches {
			groupStart, groupEnd := groupBounds(m, p.Group)
			if groupStart < 0 || groupStart == groupEnd {
				continue // discard empty captures from unmatched alternation branches
			}
			candidates = append(candidates, candidate{
				start:    groupStart,
				end:      groupEnd,
				value:    text[groupStart:groupEnd],
				itemType: itemType,
			})
		}
	}

	return candidates
}

// groupBounds extracts the (start, end) byte offsets of submatch group
// from a FindAllStringSubmatchIndex result, where m is a flattened
// [whole-start, whole-end, g1-start, g1-end, ...] slice.
func groupBounds(m []int, group int) (int, int) {
	idx := group * 2
	if idx+1 >= len(m) {
		return -1, -1
	}
	return m[idx], m[idx+1]
}

// resolveOverlaps sorts candidates by span length descending (ties by
// earlier start) and greedily accepts any candidate disjoint from every
// already-accepted span. This gives priority to broader patterns (e.g.
// a full internal URL over an IP substring inside it).
func resolveOverlaps(candidates []candidate) []candidate {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		li, lj := sorted[i].end-sorted[i].start, sorted[j].end-sorted[j].start
		if li != lj {
			return li > lj
		}
		return sorted[i].start < sorted[j].start
	})

	var accepted []candidate
	for _, c := range sorted {
		disjoint := true
		for _, a := range accepted {
			if c.start < a.end && a.start < c.end {
				disjoint = false
				break
			}
		}
		if disjoint {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

// applyReplacements splices placeholders into text end-to-start so that
// earlier, not-yet-touched spans keep their original byte offsets while
// later ones are replaced.
func applyReplacements(text string, ordered []candidate, placeholderByStart map[int]string) string {
	if len(ordered) == 0 {
		return text
	}

	result := text
	for i := len(ordered) - 1; i >= 0; i-- {
		c := ordered[i]
		placeholder, ok := placeholderByStart[c.start]
		if !ok {
			continue
		}
		result = result[:c.start] + placeholder + result[c.end:]
	}
	return result
}
