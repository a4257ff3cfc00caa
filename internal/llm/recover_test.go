package llm

import (
	"errors"
	"testing"

	"budgie/internal/core"
)

func TestRecoverJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "plain object",
			reply: `{"storeName":"Shop","items":[]}`,
			want:  `{"storeName":"Shop","items":[]}`,
		},
		{
			name:  "surrounding whitespace",
			reply: "\n  {\"total\": 3}\n",
			want:  `{"total": 3}`,
		},
		{
			name:  "prose before and after",
			reply: `Here is the data: {"total": 16.49, "items": []} Hope this helps!`,
			want:  `{"total": 16.49, "items": []}`,
		},
		{
			name:  "markdown fence",
			reply: "```json\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "braces inside strings",
			reply: `note {"description":"box {large}","price":"1.00 }"} end`,
			want:  `{"description":"box {large}","price":"1.00 }"}`,
		},
		{
			name:  "escaped quote inside string",
			reply: `x {"description":"12\" pizza","price":9} y`,
			want:  `{"description":"12\" pizza","price":9}`,
		},
		{
			name:  "invalid first candidate then valid object",
			reply: `{not json} and then {"ok":true}`,
			want:  `{"ok":true}`,
		},
		{
			name:  "nested objects",
			reply: `result: {"a":{"b":{"c":1}}}.`,
			want:  `{"a":{"b":{"c":1}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RecoverJSON(tt.reply)
			if err != nil {
				t.Fatalf("RecoverJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("RecoverJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecoverJSON_Failures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty", ""},
		{"prose only", "Sorry, I cannot read this receipt."},
		{"unbalanced", `{"total": 3`},
		{"only invalid braces", `{oops} {nope}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecoverJSON(tt.reply)
			var fe *core.ResponseFormatError
			if !errors.As(err, &fe) {
				t.Fatalf("RecoverJSON() error = %v, want *core.ResponseFormatError", err)
			}
			if fe.Reply != tt.reply {
				t.Errorf("Reply = %q, want %q", fe.Reply, tt.reply)
			}
		})
	}
}
