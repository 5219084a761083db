package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	outlinePattern   = regexp.MustCompile(`(?i)outline`)
	titlePagePattern = regexp.MustCompile(`(?i)title ?page`)
	andPattern       = regexp.MustCompile(`\s*\\and\b\s*`)
)

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '@'
}

// readCommandName returns the control word starting at i (just past the
// backslash) and the offset after it.
func readCommandName(s string, i int) (string, int) {
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	return s[i:j], j
}

// findCommand returns the offset of the next \name control word at or after
// from. Longer control words sharing the prefix (\frametitle for \frame) and
// escaped backslashes (\\frame) do not match.
func findCommand(s, name string, from int) int {
	cmd := `\` + name
	for i := from; i < len(s); {
		k := strings.Index(s[i:], cmd)
		if k < 0 {
			return -1
		}
		at := i + k
		end := at + len(cmd)
		if (end < len(s) && isLetter(s[end])) || escaped(s, at) {
			i = at + 1
			continue
		}
		return at
	}
	return -1
}

// commandArg reads \name<overlay>[opt]{arg} at offset at and returns arg and
// the offset after the closing brace.
func commandArg(s, name string, at int) (string, int, bool) {
	pos := at + len(name) + 1
	if pos < len(s) && s[pos] == '*' {
		pos++
	}
	_, pos, _ = optionalGroupAt(s, pos, '<', '>')
	_, pos, _ = optionalGroupAt(s, pos, '[', ']')
	return braceGroupAt(s, pos, true)
}

// extractFrametitle returns the argument of the first \frametitle in body.
func extractFrametitle(body string) (string, bool) {
	for from := 0; ; {
		at := findCommand(body, "frametitle", from)
		if at < 0 {
			return "", false
		}
		if arg, _, ok := commandArg(body, "frametitle", at); ok {
			return strings.TrimSpace(arg), true
		}
		from = at + 1
	}
}

// removeFrametitles deletes every \frametitle{...} from body.
func removeFrametitles(body string) string {
	var b strings.Builder
	last := 0
	for from := 0; ; {
		at := findCommand(body, "frametitle", from)
		if at < 0 {
			break
		}
		_, end, ok := commandArg(body, "frametitle", at)
		if !ok {
			from = at + 1
			continue
		}
		b.WriteString(body[last:at])
		last = end
		from = end
	}
	b.WriteString(body[last:])
	return b.String()
}

// maskComments blanks unescaped % comments up to the end of the line. Offsets
// are preserved so positions found in the masked text index the original.
func maskComments(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] != '%' || escaped(s, i) {
			continue
		}
		for i < len(b) && b[i] != '\n' {
			b[i] = ' '
			i++
		}
	}
	return string(b)
}

// collapseCommands unwraps \cmd{arg} into arg, recursively. Control words
// without an argument are kept; \\ becomes a space.
func collapseCommands(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}
		next := s[i+1]
		if next == '\\' {
			b.WriteByte(' ')
			i += 2
			continue
		}
		if strings.IndexByte(escapableSpecials, next) >= 0 {
			b.WriteByte(next)
			i += 2
			continue
		}
		if !isLetter(next) {
			b.WriteByte(s[i])
			i++
			continue
		}
		name, end := readCommandName(s, i+1)
		if n, ok := dropArgCommands[name]; ok {
			if after, ok := skipArgs(s, end, n); ok {
				i = after
				continue
			}
		}
		pos := end
		if n, ok := leadingArgDropCommands[name]; ok {
			if after, ok := skipArgs(s, end, n); ok {
				pos = skipWhitespace(s, after)
			}
		}
		if pos < len(s) && s[pos] == '*' {
			pos++
		}
		for _, d := range [][2]byte{{'<', '>'}, {'[', ']'}} {
			if pos < len(s) && s[pos] == d[0] {
				if closeAt, ok := MatchDelimiter(s, pos+1, d[0], d[1]); ok {
					pos = closeAt + 1
				}
			}
		}
		if pos < len(s) && s[pos] == '{' {
			if closeAt, ok := MatchBrace(s, pos+1); ok {
				b.WriteString(collapseCommands(s[pos+1 : closeAt]))
				i = closeAt + 1
				continue
			}
		}
		b.WriteString(`\` + name)
		i = end
	}
	return b.String()
}

// cleanTitle applies the title post-processing: artifact prefix, command
// unwrapping, brace stripping and Outline/Title Page normalization.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "e{")
	s = collapseCommands(s)
	s = strings.NewReplacer("{", "", "}", "").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = outlinePattern.ReplaceAllString(s, OutlineTitle)
	s = titlePagePattern.ReplaceAllString(s, TitlePageTitle)
	return s
}

// cleanDocField flattens a \title or \author argument to a single line.
func cleanDocField(s string) string {
	s = andPattern.ReplaceAllString(s, ", ")
	return strings.Join(strings.Fields(CleanContent(s)), " ")
}

// sameFold compares two strings under Unicode case folding.
func sameFold(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

// containsFold reports whether sub occurs in s under Unicode case folding.
func containsFold(s, sub string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(sub))
}
