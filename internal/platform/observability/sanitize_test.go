package observability

import (
	"strings"
	"testing"
)

func TestSanitizeIdentifierMasksTokens(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "short", want: "short"},
		{in: "session_01jd8x7k2m3n4p5q6r7s8t9v0w", want: "session_…8t9v0w"},
		{in: "01JD8X7K2M3N4P5Q6R7S8T9V0W", want: "…8T9V0W"},
		{in: "session_abc\ndef0123456789abcdefghi", want: "session_…defghi"},
	}
	for _, tc := range cases {
		if got := SanitizeIdentifier(tc.in); got != tc.want {
			t.Fatalf("SanitizeIdentifier(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeSearch(t *testing.T) {
	if got := SanitizeSearch("  robot \t\n wars  "); got != "robot wars" {
		t.Fatalf("unexpected search %q", got)
	}
	long := SanitizeSearch(strings.Repeat("é", 200))
	if n := len([]rune(long)); n != searchLimit {
		t.Fatalf("expected %d runes, got %d", searchLimit, n)
	}
}

func TestSanitizeRouteAndMethod(t *testing.T) {
	if got := SanitizeRoute(""); got != "/" {
		t.Fatalf("empty route should be /, got %q", got)
	}
	if got := SanitizeRoute("/content/\x1b[31mred"); got != "/content/[31mred" {
		t.Fatalf("control characters not removed: %q", got)
	}
	if got := SanitizeMethod("post\r\n"); got != "POST" {
		t.Fatalf("unexpected method %q", got)
	}
}
