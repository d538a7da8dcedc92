package tokenizer

import "testing"

func TestTokenizeStability(t *testing.T) {
	tok := New()

	first := tok.Tokenize("a@example.com", "EMAIL")
	second := tok.Tokenize("a@example.com", "EMAIL")
	if first != second {
		t.Fatalf("same value under same prefix produced different placeholders: %q vs %q", first, second)
	}
	if first != "[EMAIL_1]" {
		t.Fatalf("expected [EMAIL_1], got %q", first)
	}
}

func TestTokenizeDistinctValuesGetDistinctPlaceholders(t *testing.T) {
	tok := New()

	a := tok.Tokenize("a@example.com", "EMAIL")
	b := tok.Tokenize("b@example.com", "EMAIL")
	if a == b {
		t.Fatalf("distinct values under the same prefix got the same placeholder: %q", a)
	}
	if a != "[EMAIL_1]" || b != "[EMAIL_2]" {
		t.Fatalf("expected first-seen order [EMAIL_1], [EMAIL_2], got %q, %q", a, b)
	}
}

func TestTokenizeIndependentCountersPerPrefix(t *testing.T) {
	tok := New()

	tok.Tokenize("10.0.0.1", "IP")
	email := tok.Tokenize("a@example.com", "EMAIL")
	if email != "[EMAIL_1]" {
		t.Fatalf("expected EMAIL counter to be independent of IP counter, got %q", email)
	}
}

func TestCount(t *testing.T) {
	tok := New()
	tok.Tokenize("a@example.com", "EMAIL")
	tok.Tokenize("b@example.com", "EMAIL")
	tok.Tokenize("a@example.com", "EMAIL") // repeat, should not bump counter

	if got := tok.Count("EMAIL"); got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}
	if got := tok.Count("IP"); got != 0 {
		t.Fatalf("expected count 0 for untouched prefix, got %d", got)
	}
}
