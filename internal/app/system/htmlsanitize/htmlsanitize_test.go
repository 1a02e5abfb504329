package htmlsanitize_test

import (
	"reflect"
	"testing"

	"github.com/dalemusser/bookclub/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"plain text unchanged", "Hello, World!", "Hello, World!"},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"apostrophe kept", "Let's meet at chapter 3", "Let's meet at chapter 3"},
		{"formatting stripped", "<b>Great</b> book", "Great book"},
		{"script removed", "<p>Hello</p><script>alert('xss')</script>", "Hello"},
		{"onclick removed", `<button onclick="alert('xss')">Click</button>`, "Click"},
		{"only markup", "<script>alert(1)</script>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainTexts_DropsEmpty(t *testing.T) {
	got := htmlsanitize.PlainTexts([]string{"https://example.com/a.png", "<script>x</script>", ""})
	want := []string{"https://example.com/a.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PlainTexts = %q, want %q", got, want)
	}
}
