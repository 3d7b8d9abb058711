package lang

import "golang.org/x/text/unicode/norm"

// finalForms pairs every Hebrew letter that has a word-final variant with it.
var finalForms = map[rune]rune{
	'ך': 'כ', 'כ': 'ך',
	'ם': 'מ', 'מ': 'ם',
	'ן': 'נ', 'נ': 'ן',
	'ף': 'פ', 'פ': 'ף',
	'ץ': 'צ', 'צ': 'ץ',
}

// Hebrew canonicalizes by swapping the final and non-final form of the last
// letter. The swap is its own inverse.
type Hebrew struct{}

func (Hebrew) Name() string { return "he" }

func (Hebrew) Canonicalize(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(word)
	last := len(runes) - 1
	if swapped, ok := finalForms[runes[last]]; ok {
		runes[last] = swapped
		return string(runes)
	}
	return word
}

func (h Hebrew) Restore(word string) string { return h.Canonicalize(word) }

func (Hebrew) ContainsForeignSymbols(word string) bool {
	return !allIn(word, func(r rune) bool { return r >= 'א' && r <= 'ת' })
}

func (Hebrew) Alphabet() []rune { return runeRange('א', 'ת') }

// StripDiacritics removes niqqud and cantillation marks (U+0590..U+05CF).
func (Hebrew) StripDiacritics(text string) string {
	return stripRange(norm.NFC.String(text), 0x0590, 0x05CF)
}
