package markdown

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces", "a  \t b", "a b"},
		{"before punctuation", "word . next , end", "word. next, end"},
		{"before marker", "claim [^1]", "claim[^1]"},
		{"between markers", "claim[^1] [^2]", "claim[^1][^2]"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"whitespace lines", "a\n   \n  \nb", "a\n\nb"},
		{"trim", "\n\n  a  \n\n", "a"},
		{"list indent", "- a\n    - b", "- a\n    - b"},
		{"fenced code", "x\n```go\nif a  ==  b {\n\n\n\n}\n```\ny", "x\n\n```go\nif a  ==  b {\n\n\n\n}\n```\n\ny"},
		{"fence after heading", "## Setup\n\n\n```\nx := 1\n```\n\n\n## Next", "## Setup\n\n```\nx := 1\n```\n\n## Next"},
		{"adjacent fences", "```\na\n```\n\n\n\n```\nb\n```", "```\na\n```\n\n```\nb\n```"},
		{"unterminated fence", "x\n\n\n```\na  b", "x\n\n```\na  b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClean_NoTripleNewlines(t *testing.T) {
	got := Clean("\n\n# Results\n\n\n\nThe sky is blue.\n\n\n\n---\n\n")
	if got != "# Results\n\nThe sky is blue.\n\n---" {
		t.Errorf("Clean = %q", got)
	}
}
