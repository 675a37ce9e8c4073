package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanStripsMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Apple iPhone 14", "Apple iPhone 14"},
		{"<script>alert(1)</script>Canon", "alert(1)Canon"},
		{"NIKON <b>D850</b>", "NIKON D850"},
		{"a < b > c", "a  c"},
		{"line1\nline2\ttab", "line1line2tab"},
		{"  padded  ", "padded"},
		{"<<b>>nested", "nested"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Clean(tc.in); got != tc.want {
			t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"plain",
		"<i>markup</i>",
		"a<b",
		"ctrl\x00\x1bchars",
		strings.Repeat("x", 2000),
		strings.Repeat("<p>y</p>", 300),
		"  <div> spaced </div>  ",
	}

	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestCleanBoundsLength(t *testing.T) {
	long := strings.Repeat("a", 10*MaxLen)
	got := Clean(long)
	if utf8.RuneCountInString(got) > MaxLen {
		t.Fatalf("Clean output length %d exceeds %d", utf8.RuneCountInString(got), MaxLen)
	}

	multibyte := strings.Repeat("日", MaxLen+100)
	got = Clean(multibyte)
	if utf8.RuneCountInString(got) > MaxLen {
		t.Fatalf("Clean multibyte output length %d exceeds %d", utf8.RuneCountInString(got), MaxLen)
	}
}

func TestCleanAny(t *testing.T) {
	if got := CleanAny(42); got != "42" {
		t.Errorf("CleanAny(42) = %q", got)
	}
	if got := CleanAny("<u>str</u>"); got != "str" {
		t.Errorf("CleanAny string = %q", got)
	}
	if got := CleanAny(1.5); got != "1.5" {
		t.Errorf("CleanAny(1.5) = %q", got)
	}
}
