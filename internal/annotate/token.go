package annotate

// Token is one maximal run of ASCII letters inside a text node.
type Token struct {
	Start int    // byte offset of the first letter
	End   int    // byte offset just past the last letter
	Text  string // original casing
}

// ScanWords extracts every Token from text in order. Offsets address
// bytes of text, so everything between tokens (punctuation, whitespace,
// non-ASCII runs) can be carried over unchanged by the caller. ASCII
// letters never appear inside UTF-8 continuation bytes, which keeps the
// scan safe on multibyte text.
func ScanWords(text string) []Token {
	var tokens []Token
	start := -1
	for i := 0; i < len(text); i++ {
		if isLetter(text[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Start: start, End: i, Text: text[start:i]})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Start: start, End: len(text), Text: text[start:]})
	}
	return tokens
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
