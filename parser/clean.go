package parser

import (
	"strings"
)

// escapableSpecials are the characters LaTeX prints literally after a
// backslash.
const escapableSpecials = "%$&#_{}"

const (
	formulaPrefix = "FORMULA: "
	systemHeader  = "SISTEMA DE EQUAÇÕES:"

	// displayMark opens a display formula line in walkSpans output so
	// normalizeLines keeps the formula's spacing. It never reaches callers.
	displayMark = "\x00"
)

// Environments whose bodies are math rendered as a single formula line.
var formulaEnvs = map[string]bool{
	"equation": true, "equation*": true,
	"displaymath": true,
	"multline":    true, "multline*": true,
}

// Environments whose bodies are rows of aligned equations.
var systemEnvs = map[string]bool{
	"align": true, "align*": true,
	"gather": true, "gather*": true,
	"eqnarray": true, "eqnarray*": true,
	"flalign": true, "flalign*": true,
	"alignat": true, "alignat*": true,
}

var verbatimEnvs = map[string]bool{
	"verbatim": true, "verbatim*": true,
	"Verbatim": true, "lstlisting": true,
}

// Environments whose mandatory arguments are layout, not text.
var envArgCount = map[string]int{
	"column":    1,
	"minipage":  1,
	"tabular":   1,
	"tabular*":  2,
	"tabularx":  2,
	"overprint": 0,
}

// Beamer blocks carry their heading as the first argument.
var blockEnvs = map[string]bool{
	"block": true, "alertblock": true, "exampleblock": true,
}

// Commands whose arguments are dropped along with the command.
var dropArgCommands = map[string]int{
	"label": 1, "ref": 1, "eqref": 1, "cite": 1,
	"vspace": 1, "hspace": 1, "color": 1,
	"setlength": 2, "addtolength": 2,
	"setbeamercolor": 2, "setbeamertemplate": 1,
	"usetheme": 1, "usecolortheme": 1,
	"frametitle": 1,
}

// Commands whose leading arguments are dropped and whose last argument is
// kept as text.
var leadingArgDropCommands = map[string]int{
	"textcolor": 1, "colorbox": 1, "fcolorbox": 2, "href": 1,
}

// CleanContent turns a raw frame body into narration-ready text. Math and
// images become FORMULA and IMAGEM markers, list items become "- " lines,
// other markup is unwrapped or removed. Constructs it does not recognize
// are left as they are.
func CleanContent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	raw = strings.ReplaceAll(raw, displayMark, "")
	return normalizeLines(walkSpans(maskComments(raw)))
}

// walkSpans classifies s left to right. Math, image and verbatim spans are
// rendered straight to output; text and command spans are unwrapped, with
// group contents walked recursively.
func walkSpans(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		switch s[i] {
		case '$':
			i = mathSpan(&b, s, i)
		case '{':
			i = groupSpan(&b, s, i)
		case '~':
			b.WriteByte(' ')
			i++
		case '\\':
			i = commandSpan(&b, s, i)
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

// mathSpan handles $$...$$ and $...$ starting at i.
func mathSpan(b *strings.Builder, s string, i int) int {
	if strings.HasPrefix(s[i:], "$$") {
		end := indexUnescaped(s, "$$", i+2)
		if end < 0 {
			b.WriteString("$$")
			return i + 2
		}
		writeFormulaLine(b, s[i+2:end])
		return end + 2
	}
	end := indexUnescaped(s, "$", i+1)
	if end < 0 || strings.Contains(s[i+1:end], "\n\n") {
		b.WriteByte('$')
		return i + 1
	}
	writeInlineFormula(b, s[i+1:end])
	return end + 1
}

// groupSpan handles a bare {...} group. Empty groups vanish; groups opening
// with a switch like {\bf x} or spanning lines are unwrapped; other groups
// keep their braces.
func groupSpan(b *strings.Builder, s string, i int) int {
	closeAt, ok := MatchBrace(s, i+1)
	if !ok {
		b.WriteByte('{')
		return i + 1
	}
	raw := s[i+1 : closeAt]
	inner := walkSpans(raw)
	switch {
	case strings.TrimSpace(inner) == "":
	case opensWithSwitch(raw) || strings.Contains(inner, "\n"):
		b.WriteString(inner)
	default:
		b.WriteByte('{')
		b.WriteString(inner)
		b.WriteByte('}')
	}
	return closeAt + 1
}

func opensWithSwitch(raw string) bool {
	t := strings.TrimSpace(raw)
	return len(t) > 1 && t[0] == '\\' && isLetter(t[1])
}

// commandSpan handles a backslash sequence starting at i.
func commandSpan(b *strings.Builder, s string, i int) int {
	if i+1 >= len(s) {
		b.WriteByte('\\')
		return i + 1
	}
	next := s[i+1]
	switch {
	case next == '\\':
		pos := i + 2
		if pos < len(s) && s[pos] == '*' {
			pos++
		}
		if pos < len(s) && s[pos] == '[' {
			if closeAt, ok := MatchDelimiter(s, pos+1, '[', ']'); ok {
				pos = closeAt + 1
			}
		}
		b.WriteByte('\n')
		return pos
	case strings.IndexByte(escapableSpecials, next) >= 0:
		b.WriteByte(next)
		return i + 2
	case next == '[':
		end := strings.Index(s[i+2:], `\]`)
		if end < 0 {
			b.WriteString(`\[`)
			return i + 2
		}
		writeFormulaLine(b, s[i+2:i+2+end])
		return i + 2 + end + 2
	case next == '(':
		end := strings.Index(s[i+2:], `\)`)
		if end < 0 {
			b.WriteString(`\(`)
			return i + 2
		}
		writeInlineFormula(b, s[i+2:i+2+end])
		return i + 2 + end + 2
	case next == ',' || next == ';' || next == ':' || next == ' ' || next == '\n':
		b.WriteByte(' ')
		return i + 2
	case next == '!' || next == '/':
		return i + 2
	case strings.IndexByte("'`\"^~=.", next) >= 0:
		// accents: keep the accented letter or group contents
		pos := i + 2
		if inner, end, ok := braceGroupAt(s, pos, false); ok {
			b.WriteString(walkSpans(inner))
			return end
		}
		return pos
	case !isLetter(next):
		b.WriteByte('\\')
		return i + 1
	}

	name, end := readCommandName(s, i+1)
	switch name {
	case "begin":
		return beginSpan(b, s, i, end)
	case "end":
		if _, after, ok := braceGroupAt(s, end, false); ok {
			b.WriteByte('\n')
			return after
		}
	case "item":
		b.WriteString("\n- ")
		if label, after, ok := optionalGroupAt(s, end, '[', ']'); ok {
			if l := strings.TrimSpace(walkSpans(label)); l != "" {
				b.WriteString(l)
				b.WriteByte(' ')
			}
			end = after
		}
		return skipWhitespace(s, end)
	case "includegraphics":
		if path, after, ok := commandArg(s, name, i); ok {
			b.WriteString("[IMAGEM: " + strings.TrimSpace(path) + "]")
			return after
		}
	}

	if n, ok := dropArgCommands[name]; ok {
		if after, ok := skipArgs(s, end, n); ok {
			return after
		}
	}
	if n, ok := leadingArgDropCommands[name]; ok {
		if after, ok := skipArgs(s, end, n); ok {
			if inner, last, ok := braceGroupAt(s, after, true); ok {
				b.WriteString(walkSpans(inner))
				return last
			}
			return after
		}
	}
	return genericCommand(b, s, end)
}

// genericCommand unwraps \cmd*<ov>[opt]{arg} into arg. A command with no
// immediate brace argument is deleted.
func genericCommand(b *strings.Builder, s string, pos int) int {
	if pos < len(s) && s[pos] == '*' {
		pos++
	}
	if pos < len(s) && s[pos] == '<' {
		if closeAt, ok := MatchDelimiter(s, pos+1, '<', '>'); ok {
			pos = closeAt + 1
		}
	}
	if pos < len(s) && s[pos] == '[' {
		if closeAt, ok := MatchDelimiter(s, pos+1, '[', ']'); ok {
			pos = closeAt + 1
		}
	}
	if pos < len(s) && s[pos] == '{' {
		if closeAt, ok := MatchBrace(s, pos+1); ok {
			b.WriteString(walkSpans(s[pos+1 : closeAt]))
			return closeAt + 1
		}
	}
	return pos
}

// beginSpan handles \begin{env} with the command at i and its name ending
// at end.
func beginSpan(b *strings.Builder, s string, i, end int) int {
	env, after, ok := braceGroupAt(s, end, false)
	if !ok {
		b.WriteString(`\begin`)
		return end
	}
	env = strings.TrimSpace(env)

	switch {
	case formulaEnvs[env], systemEnvs[env], verbatimEnvs[env]:
		closeTag := `\end{` + env + `}`
		k := strings.Index(s[after:], closeTag)
		if k < 0 {
			b.WriteString(s[i:after])
			return after
		}
		bodyStart, bodyEnd := after, after+k
		switch {
		case formulaEnvs[env]:
			writeFormulaLine(b, s[bodyStart:bodyEnd])
		case systemEnvs[env]:
			if strings.HasPrefix(env, "alignat") {
				if _, argEnd, ok := braceGroupAt(s, bodyStart, true); ok {
					bodyStart = argEnd
				}
			}
			b.WriteString(equationSystem(s[bodyStart:bodyEnd]))
		default:
			b.WriteString("\n" + s[bodyStart:bodyEnd] + "\n")
		}
		return bodyEnd + len(closeTag)

	case blockEnvs[env]:
		b.WriteByte('\n')
		if heading, argEnd, ok := braceGroupAt(s, after, true); ok {
			b.WriteString(walkSpans(heading))
			b.WriteByte('\n')
			return argEnd
		}
		return after
	}

	// Wrapper environments (itemize, center, columns, ...) vanish; their
	// layout arguments go with them.
	b.WriteByte('\n')
	_, after, _ = optionalGroupAt(s, after, '[', ']')
	if n := envArgCount[env]; n > 0 {
		if argEnd, ok := skipArgs(s, after, n); ok {
			after = argEnd
		}
	}
	return after
}

// skipArgs skips an optional star, overlay and [opt], then n brace groups.
func skipArgs(s string, pos, n int) (int, bool) {
	if pos < len(s) && s[pos] == '*' {
		pos++
	}
	_, pos, _ = optionalGroupAt(s, pos, '<', '>')
	_, pos, _ = optionalGroupAt(s, pos, '[', ']')
	for k := 0; k < n; k++ {
		_, end, ok := braceGroupAt(s, pos, true)
		if !ok {
			return pos, false
		}
		pos = end
	}
	return pos, true
}

// writeFormulaLine emits the trimmed body as its own marker line. Spacing
// inside a source line is kept; a body spread over several lines is joined
// with single spaces so the marker stays on one line.
func writeFormulaLine(b *strings.Builder, body string) {
	var parts []string
	for _, l := range strings.Split(body, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	body = strings.Join(parts, " ")
	if body == "" {
		return
	}
	b.WriteString("\n" + displayMark + formulaPrefix + body + "\n")
}

func writeInlineFormula(b *strings.Builder, body string) {
	body = strings.Join(strings.Fields(body), " ")
	if body == "" {
		return
	}
	b.WriteString(formulaPrefix + body)
}

var alignMarkers = strings.NewReplacer(`\&`, "&", "&", "", `\nonumber`, "", `\notag`, "")

// equationSystem renders aligned rows as a header followed by one formula
// line per row.
func equationSystem(body string) string {
	var b strings.Builder
	b.WriteString("\n" + systemHeader + "\n")
	rows := strings.Split(strings.ReplaceAll(body, `\\`, "\n"), "\n")
	for _, row := range rows {
		row = strings.Join(strings.Fields(alignMarkers.Replace(row)), " ")
		if row == "" {
			continue
		}
		b.WriteString(formulaPrefix + row + "\n")
	}
	return b.String()
}

// indexUnescaped finds sub at or after from, skipping occurrences preceded
// by an odd run of backslashes.
func indexUnescaped(s, sub string, from int) int {
	for i := from; i <= len(s); {
		k := strings.Index(s[i:], sub)
		if k < 0 {
			return -1
		}
		at := i + k
		if !escaped(s, at) {
			return at
		}
		i = at + 1
	}
	return -1
}

// normalizeLines trims every line, collapses inner whitespace outside
// display formula lines, drops blank lines and strips a stray unbalanced leading
// brace.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(l), displayMark); ok {
			l = strings.TrimSpace(rest)
		} else {
			l = strings.Join(strings.Fields(strings.ReplaceAll(l, displayMark, "")), " ")
		}
		if l != "" {
			out = append(out, l)
		}
	}
	res := strings.Join(out, "\n")
	for strings.HasPrefix(res, "{") {
		if _, ok := MatchBrace(res, 1); ok {
			break
		}
		res = strings.TrimLeft(res[1:], " \t\n")
	}
	return res
}
