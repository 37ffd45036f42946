package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"bare array", ` [1, 2] `, `[1, 2]`},
		{"fenced", "```json\n{\"claims\": []}\n```", `{"claims": []}`},
		{"prose around", `Here you go: {"x": "y"} hope that helps`, `{"x": "y"}`},
		{"braces in strings", `note {"t": "a } b { c"} end`, `{"t": "a } b { c"}`},
		{"escaped quote", `{"t": "say \"hi\" }"}`, `{"t": "say \"hi\" }"}`},
		{"nested", `x {"a": {"b": [1, {"c": 2}]}} y`, `{"a": {"b": [1, {"c": 2}]}}`},
		{"skips broken prefix", `{oops} {"ok": true}`, `{"ok": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if err != nil {
				t.Fatalf("ExtractJSON: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractJSON_None(t *testing.T) {
	for _, in := range []string{"", "no json here", "{unterminated", "]["} {
		if _, err := ExtractJSON(in); !errors.Is(err, ErrNoJSON) {
			t.Errorf("ExtractJSON(%q) error = %v, want ErrNoJSON", in, err)
		}
	}
}
