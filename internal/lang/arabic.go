package lang

import "golang.org/x/text/unicode/norm"

// Arabic keeps words as written; only harakat are stripped.
type Arabic struct{}

func (Arabic) Name() string { return "ar" }

func (Arabic) Canonicalize(word string) string { return word }

func (Arabic) Restore(word string) string { return word }

func (Arabic) ContainsForeignSymbols(word string) bool {
	return !allIn(word, func(r rune) bool { return r >= 0x0621 && r <= 0x064A })
}

func (Arabic) Alphabet() []rune { return runeRange(0x0621, 0x064A) }

// StripDiacritics removes tashkeel (U+064B..U+065F).
func (Arabic) StripDiacritics(text string) string {
	return stripRange(norm.NFC.String(text), 0x064B, 0x065F)
}
