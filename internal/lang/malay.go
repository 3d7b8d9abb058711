package lang

// Malay uses the basic Latin alphabet with no canonical rewriting.
type Malay struct{}

func (Malay) Name() string { return "ms" }

func (Malay) Canonicalize(word string) string { return word }

func (Malay) Restore(word string) string { return word }

func (Malay) ContainsForeignSymbols(word string) bool {
	return !allIn(word, isASCIILetter)
}

// Alphabet returns a-z followed by A-Z.
func (Malay) Alphabet() []rune {
	return append(runeRange('a', 'z'), runeRange('A', 'Z')...)
}

func (Malay) StripDiacritics(text string) string { return text }

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
