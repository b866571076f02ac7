package util

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLength int
		want      string
	}{
		{
			name:      "empty",
			text:      "",
			maxLength: 10,
			want:      "",
		},
		{
			name:      "keeps newlines and tabs",
			text:      "a\tb\nc\r\n",
			maxLength: 100,
			want:      "a\tb\nc\r\n",
		},
		{
			name:      "drops control characters",
			text:      "a\x00b\x07c\x1b",
			maxLength: 100,
			want:      "abc",
		},
		{
			name:      "truncates with ellipsis",
			text:      "abcdefghij",
			maxLength: 8,
			want:      "abcde...",
		},
		{
			name:      "counts characters not bytes",
			text:      "ããããã",
			maxLength: 5,
			want:      "ããããã",
		},
		{
			name:      "tiny limit",
			text:      "abcdef",
			maxLength: 2,
			want:      "ab",
		},
		{
			name:      "no limit",
			text:      strings.Repeat("x", 5000),
			maxLength: 0,
			want:      strings.Repeat("x", 5000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.text, tt.maxLength); got != tt.want {
				t.Errorf("SanitizeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeText_TelegramLimit(t *testing.T) {
	got := SanitizeText(strings.Repeat("é", MaxMessageLength+10), MaxMessageLength)
	if n := len([]rune(got)); n != MaxMessageLength {
		t.Errorf("SanitizeText() length = %d, want %d", n, MaxMessageLength)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("SanitizeText() should end with ellipsis")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantCmd  string
		wantArgs int
	}{
		{name: "plain text", text: "hello there", wantCmd: "", wantArgs: 0},
		{name: "bare command", text: "/start", wantCmd: "start", wantArgs: 0},
		{name: "command with args", text: "/traduz good morning", wantCmd: "traduz", wantArgs: 2},
		{name: "command addressed to bot", text: "/Help@tradubot", wantCmd: "help", wantArgs: 0},
		{name: "leading spaces", text: "   /stats", wantCmd: "stats", wantArgs: 0},
		{name: "empty", text: "", wantCmd: "", wantArgs: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseCommand(tt.text)
			if cmd != tt.wantCmd {
				t.Errorf("ParseCommand() cmd = %q, want %q", cmd, tt.wantCmd)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("ParseCommand() args = %v, want %d args", args, tt.wantArgs)
			}
		})
	}
}

func TestCommandArgument(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "/traduz", want: ""},
		{text: "/traduz   good morning  ", want: "good morning"},
		{text: "/traduz line one\nline two", want: "line one\nline two"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := CommandArgument(tt.text); got != tt.want {
				t.Errorf("CommandArgument() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs(" 1, 22 ,,333")
	if err != nil {
		t.Fatalf("ParseIDs() error = %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 22 || ids[2] != 333 {
		t.Errorf("ParseIDs() = %v", ids)
	}

	ids, err = ParseIDs("")
	if err != nil || len(ids) != 0 {
		t.Errorf("ParseIDs(\"\") = %v, %v", ids, err)
	}

	if _, err := ParseIDs("1,abc"); err == nil {
		t.Error("ParseIDs() expected error for non numeric id")
	}
}
