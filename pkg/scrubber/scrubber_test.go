package scrubber

import (
	"testing"

	"github.com/rhuss/scrubgate/pkg/patterns"
	"github.com/rhuss/scrubgate/pkg/tokenizer"
)

func TestScrubEmptyItemTypesIsNoOp(t *testing.T) {
	tok := tokenizer.New()
	res := Scrub("hello world", nil, tok)

	if res.SanitizedText != "hello world" {
		t.Fatalf("expected unchanged text, got %q", res.SanitizedText)
	}
	if len(res.Replacements) != 0 {
		t.Fatalf("expected no replacements, got %v", res.Replacements)
	}
	if len(res.Summary) != 0 {
		t.Fatalf("expected empty summary, got %v", res.Summary)
	}
}

func TestScrubUnknownItemTypeSkippedWithoutError(t *testing.T) {
	tok := tokenizer.New()
	res := Scrub("hello world", []string{"not_a_real_type"}, tok)

	if res.SanitizedText != "hello world" {
		t.Fatalf("expected unchanged text, got %q", res.SanitizedText)
	}
}

func TestScrubTerminalUserAndPath(t *testing.T) {
	tok := tokenizer.New()
	text := "❯ whoami\njdoe\n~/projects/app"
	res := Scrub(text, []string{patterns.TypeTerminalUser, patterns.TypePath}, tok)

	want := "❯ whoami\n[USER_1]\n[PATH_1]"
	if res.SanitizedText != want {
		t.Fatalf("got %q, want %q", res.SanitizedText, want)
	}
	if res.Summary[patterns.TypeTerminalUser] != 1 || res.Summary[patterns.TypePath] != 1 {
		t.Fatalf("unexpected summary: %v", res.Summary)
	}
}

func TestScrubSecretAndIP(t *testing.T) {
	tok := tokenizer.New()
	text := "password=hunter23456789 from 10.0.1.42"
	res := Scrub(text, []string{patterns.TypeSecret, patterns.TypeIP, patterns.TypePrivateIP}, tok)

	if !contains(res.SanitizedText, "[SECRET_1]") {
		t.Fatalf("expected secret value tokenized, got %q", res.SanitizedText)
	}
	if !contains(res.SanitizedText, "password=") {
		t.Fatalf("expected keyword preserved outside the captured group, got %q", res.SanitizedText)
	}
	if !contains(res.SanitizedText, "[IP_1]") {
		t.Fatalf("expected ip tokenized, got %q", res.SanitizedText)
	}
}

func TestScrubOverlapLongestWins(t *testing.T) {
	tok := tokenizer.New()
	text := "Access https://api.internal/v1 from 192.168.1.1"
	res := Scrub(text, []string{patterns.TypeInternalURL, patterns.TypeIP, patterns.TypePrivateIP}, tok)

	if !contains(res.SanitizedText, "[URL_1]") {
		t.Fatalf("expected internal url tokenized as URL, got %q", res.SanitizedText)
	}
	if !contains(res.SanitizedText, "[IP_1]") {
		t.Fatalf("expected standalone ip tokenized, got %q", res.SanitizedText)
	}
	if contains(res.SanitizedText, "api.internal/v1") {
		t.Fatalf("expected internal url fully replaced, got %q", res.SanitizedText)
	}
}

func TestScrubNonOverlapInvariant(t *testing.T) {
	tok := tokenizer.New()
	text := "reach 10.0.1.42 via https://svc.internal/x and 172.16.0.5"
	res := Scrub(text, patterns.Union(), tok)

	// len(replacements) == sum(summary values)
	total := 0
	for _, c := range res.Summary {
		total += c
	}
	if total != len(res.Replacements) {
		t.Fatalf("accounting invariant violated: %d replacements, summary totals %d", len(res.Replacements), total)
	}
}

func TestScrubTokenizerSharedAcrossCalls(t *testing.T) {
	tok := tokenizer.New()
	first := Scrub("contact a@example.com", []string{patterns.TypeEmail}, tok)
	second := Scrub("again a@example.com, now b@example.com", []string{patterns.TypeEmail}, tok)

	if !contains(first.SanitizedText, "[EMAIL_1]") {
		t.Fatalf("expected [EMAIL_1] in first call, got %q", first.SanitizedText)
	}
	if !contains(second.SanitizedText, "[EMAIL_1]") || !contains(second.SanitizedText, "[EMAIL_2]") {
		t.Fatalf("expected shared tokenizer to continue numbering, got %q", second.SanitizedText)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
