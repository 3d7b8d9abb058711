package lang

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	geezFirst rune = 0x1200
	geezLast  rune = 0x137F

	// Vowel tags live in the BMP private use area, one per vowel order 0..6.
	// Order 7 is written as the bare base consonant.
	vowelTagFirst rune = 0xE001
	vowelTagLast  rune = 0xE007
	bareOrder          = 7
)

// Geez breaks every Ethiopic syllable into its base consonant followed by a
// vowel tag, turning the abugida into a virtual abjad.
type Geez struct {
	alphabet []rune
}

func NewGeez() *Geez {
	alphabet := make([]rune, 0, (geezLast-geezFirst+1)/8+7)
	for r := geezFirst; r <= geezLast; r += 8 {
		alphabet = append(alphabet, r)
	}
	alphabet = append(alphabet, runeRange(vowelTagFirst, vowelTagLast)...)
	return &Geez{alphabet: alphabet}
}

func (*Geez) Name() string { return "gez" }

func (*Geez) Canonicalize(word string) string {
	var sb strings.Builder
	sb.Grow(len(word) * 2)
	for _, r := range word {
		if !isGeez(r) {
			sb.WriteRune(r)
			continue
		}
		order := (r - geezFirst) % 8
		sb.WriteRune(r - order)
		if order != bareOrder {
			sb.WriteRune(vowelTagFirst + order)
		}
	}
	return sb.String()
}

func (*Geez) Restore(word string) string {
	runes := []rune(word)
	var sb strings.Builder
	sb.Grow(len(word))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case isGeez(r) && i+1 < len(runes) && isVowelTag(runes[i+1]):
			sb.WriteRune(r + (runes[i+1] - vowelTagFirst))
			i++
		case isGeez(r) && (r-geezFirst)%8 == 0:
			sb.WriteRune(r + bareOrder)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (*Geez) ContainsForeignSymbols(word string) bool {
	return !allIn(word, func(r rune) bool {
		return isGeez(r) || isVowelTag(r) || (r >= 0x1360 && r <= 0x1368) || unicode.IsSpace(r)
	})
}

func (g *Geez) Alphabet() []rune { return append([]rune(nil), g.alphabet...) }

// StripDiacritics only composes the text; Ethiopic has no separate marks.
func (*Geez) StripDiacritics(text string) string { return norm.NFC.String(text) }

func isGeez(r rune) bool { return r >= geezFirst && r <= geezLast }

func isVowelTag(r rune) bool { return r >= vowelTagFirst && r <= vowelTagLast }
