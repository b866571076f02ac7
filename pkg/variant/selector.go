package variant

import (
	"errors"
	"slices"
	"unicode/utf8"
)

// DefaultIdealLength is the character count that balances a post visually.
const DefaultIdealLength = 150

var ErrEmptyInput = errors.New("no usable variants")

// Deviation is the distance, in characters, between text and idealLength.
func Deviation(text string, idealLength int) int {
	d := utf8.RuneCountInString(text) - idealLength
	if d < 0 {
		return -d
	}
	return d
}

// Rank returns a copy of variants stable-sorted by ascending Deviation.
// Candidates with equal deviation keep their original order.
func Rank(variants []string, idealLength int) []string {
	ranked := slices.Clone(variants)
	slices.SortStableFunc(ranked, func(a, b string) int {
		return Deviation(a, idealLength) - Deviation(b, idealLength)
	})
	return ranked
}

// Pick returns the candidate closest to idealLength; ties go to the earlier one.
func Pick(variants []string, idealLength int) (string, error) {
	if len(variants) == 0 {
		return "", ErrEmptyInput
	}

	return Rank(variants, idealLength)[0], nil
}
