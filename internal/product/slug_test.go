// AngelaMos | 2026
// slug_test.go

package product

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "My First Course", "my-first-course"},
		{"already slugged", "notion-template", "notion-template"},
		{"punctuation collapses", "AI: The Complete Guide!!", "ai-the-complete-guide"},
		{"numbers kept", "30 Day Launch Plan", "30-day-launch-plan"},
		{"unicode stripped", "Café Recipes — Vol. 2", "caf-recipes-vol-2"},
		{"surrounding whitespace", "  spaced out  ", "spaced-out"},
		{"consecutive separators", "a  --  b", "a-b"},
		{"empty falls back", "", "product"},
		{"symbols only fall back", "!!! ???", "product"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlugifyLength(t *testing.T) {
	long := strings.Repeat("word ", 40)

	slug := Slugify(long)
	if len(slug) > maxSlugLength {
		t.Fatalf("slug length = %d, want <= %d", len(slug), maxSlugLength)
	}
	if strings.HasSuffix(slug, "-") || strings.HasPrefix(slug, "-") {
		t.Fatalf("slug %q has dangling dash after truncation", slug)
	}
}
