package text

import (
	"strings"
	"unicode"
)

// wordSeparators are the punctuation marks that end a word in addition to
// whitespace. The Ethiopic marks cover wordspace, full stop, comma and the
// other sentence punctuation of the Ge'ez script.
const wordSeparators = `.-,:;()"'?!` + "፡።፣፤፥፦፧፨"

// IsWordSeparator reports whether r delimits words.
func IsWordSeparator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(wordSeparators, r)
}

// SplitSentences splits text on '.' and newlines, trimming each piece and
// dropping empty ones.
func SplitSentences(text string) []string {
	parts := strings.FieldsFunc(NormalizeLineEndings(text), func(r rune) bool {
		return r == '.' || r == '\n'
	})

	sentences := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// SplitWords splits a sentence into non-empty words.
func SplitWords(sentence string) []string {
	return strings.FieldsFunc(sentence, IsWordSeparator)
}

// Words returns every word of text, sentence by sentence.
func Words(text string) []string {
	var words []string
	for _, s := range SplitSentences(text) {
		words = append(words, SplitWords(s)...)
	}
	return words
}
