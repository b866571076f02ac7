package util

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageLength is the longest text Telegram accepts in one message.
const MaxMessageLength = 4096

// SanitizeText drops control characters other than newlines and tabs and
// truncates the result to maxLength characters, ending it with "..." when cut.
func SanitizeText(text string, maxLength int) string {
	if text == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	if maxLength <= 0 || utf8.RuneCountInString(cleaned) <= maxLength {
		return cleaned
	}

	runes := []rune(cleaned)
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}

// ParseCommand splits "/cmd@bot arg1 arg2" into "cmd" and its arguments.
// Text that is not a command yields an empty command.
func ParseCommand(text string) (string, []string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}

	parts := strings.Fields(text)
	command := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}

	return strings.ToLower(command), parts[1:]
}

// CommandArgument returns everything after the command word, keeping the
// argument's own spacing and line breaks.
func CommandArgument(text string) string {
	text = strings.TrimSpace(text)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

// ParseIDs parses a comma separated list of numeric ids, ignoring blanks.
func ParseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
