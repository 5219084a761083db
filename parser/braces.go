package parser

// MatchBrace returns the offset of the '}' closing the group whose '{' sits
// just before start. The second result is false when the text ends before
// the group is balanced.
func MatchBrace(text string, start int) (int, bool) {
	return MatchDelimiter(text, start, '{', '}')
}

// MatchDelimiter is MatchBrace for an arbitrary delimiter pair. Nested pairs
// of the same kind are counted; delimiters escaped with an odd number of
// backslashes are ignored.
func MatchDelimiter(text string, start int, open, close byte) (int, bool) {
	if start < 0 || start > len(text) {
		return -1, false
	}
	depth := 1
	for i := start; i < len(text); i++ {
		c := text[i]
		if c != open && c != close {
			continue
		}
		if escaped(text, i) {
			continue
		}
		if c == open {
			depth++
			continue
		}
		depth--
		if depth == 0 {
			return i, true
		}
	}
	return -1, false
}

// escaped reports whether text[i] is preceded by an odd run of backslashes.
func escaped(text string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// braceGroupAt reads a "{...}" group starting at i (after optional
// whitespace when skipSpace is set). It returns the inner text and the
// offset just past the closing brace.
func braceGroupAt(text string, i int, skipSpace bool) (inner string, end int, ok bool) {
	if skipSpace {
		i = skipWhitespace(text, i)
	}
	if i >= len(text) || text[i] != '{' {
		return "", i, false
	}
	closeAt, ok := MatchBrace(text, i+1)
	if !ok {
		return "", i, false
	}
	return text[i+1 : closeAt], closeAt + 1, true
}

// optionalGroupAt reads an optional "[...]" or "<...>" group at i, after
// optional whitespace. When absent it returns i unchanged.
func optionalGroupAt(text string, i int, open, close byte) (inner string, end int, present bool) {
	j := skipWhitespace(text, i)
	if j >= len(text) || text[j] != open {
		return "", i, false
	}
	closeAt, ok := MatchDelimiter(text, j+1, open, close)
	if !ok {
		return "", i, false
	}
	return text[j+1 : closeAt], closeAt + 1, true
}

func skipWhitespace(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}
