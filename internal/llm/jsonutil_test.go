package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"a":1}`,
			want:    `{"a":1}`,
		},
		{
			name:    "markdown fence",
			content: "```json\n{\"a\":1}\n```",
			want:    `{"a":1}`,
		},
		{
			name:    "surrounding prose",
			content: `Sure, here you go: {"a":{"b":2}} hope that helps`,
			want:    `{"a":{"b":2}}`,
		},
		{
			name:    "no object",
			content: "plain text without braces",
			want:    "",
		},
		{
			name:    "reversed braces",
			content: "} nothing here {",
			want:    "",
		},
		{
			name:    "empty input",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}
