// Package variant turns a raw completion into translation candidates and
// picks the one whose length best fits the delivery surface.
package variant

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxVariants is how many candidates are kept from one completion.
const MaxVariants = 3

// Format selects how the upstream model is asked to lay out its variants.
type Format string

const (
	// FormatLines expects one candidate per line.
	FormatLines Format = "lines"
	// FormatJSON expects a JSON array of strings.
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatLines:
		return FormatLines, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown response format %q", s)
	}
}

// Parse splits raw on line boundaries and returns the first MaxVariants
// non-empty trimmed lines in the order the model emitted them.
//
// This relies on the model following the one-per-line convention. Nothing is
// deduplicated and enumeration markers such as "1." are kept, so a chatty
// preamble line becomes a candidate too.
func Parse(raw string) []string {
	lines := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	return collect(lines)
}

// ParseJSON decodes a JSON array of strings, optionally wrapped in a markdown
// code fence. Anything that does not decode falls back to Parse.
func ParseJSON(raw string) []string {
	var items []string
	if err := json.Unmarshal([]byte(stripFence(raw)), &items); err != nil {
		return Parse(raw)
	}

	return collect(items)
}

// ParseAs dispatches to the parser matching format.
func ParseAs(format Format, raw string) []string {
	if format == FormatJSON {
		return ParseJSON(raw)
	}
	return Parse(raw)
}

func collect(items []string) []string {
	variants := make([]string, 0, MaxVariants)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		variants = append(variants, item)
		if len(variants) == MaxVariants {
			break
		}
	}

	return variants
}

func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// drop the opening fence line, including an optional language tag
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return s
	}

	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}

	return strings.TrimSpace(s)
}
