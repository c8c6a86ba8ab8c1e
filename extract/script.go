package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lexandro/projectindex/language"
)

// The script extractor is best-effort: a fixed battery of regular
// expressions over raw text, not a grammar parse. Minified or unusually
// formatted code may under-report symbols.

const ident = `[A-Za-z_$][\w$]*`

var (
	importFromPattern    = regexp.MustCompile(`(?m)(?:^|[;\s])import\s+(?:type\s+)?([^;'"]+?)\s+from\s+['"]([^'"]+)['"]`)
	importBarePattern    = regexp.MustCompile(`(?m)(?:^|[;\s])import\s+['"]([^'"]+)['"]`)
	importRequirePattern = regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`)

	// Each function pattern captures: name, async keyword, parameter list, return type.
	functionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)(?:^|[^\w$.])(async\s+)?function\s*\*?\s*(` + ident + `)\s*(?:<[^>(]*>)?\s*\(([^)]*)\)(?:\s*:\s*([^{;]+?))?\s*\{`),
		regexp.MustCompile(`(?m)(?:const|let|var)\s+(` + ident + `)\s*(?::[^=]+)?=\s*(async\s+)?\(([^)]*)\)(?:\s*:\s*([^=]+?))?\s*=>`),
		regexp.MustCompile(`(?m)(?:const|let|var)\s+(` + ident + `)\s*=\s*(async\s+)?(` + ident + `)\s*=>()`),
		regexp.MustCompile(`(?m)(` + ident + `)\s*:\s*(async\s+)?function\s*\*?\s*\(([^)]*)\)()`),
	}
	// Group positions for functionPatterns: name, async, args, returns.
	functionGroups = [][4]int{
		{2, 1, 3, 4},
		{1, 2, 3, 4},
		{1, 2, 3, 4},
		{1, 2, 3, 4},
	}

	classPattern     = regexp.MustCompile(`(?m)(?:^|[^\w$.])class\s+(` + ident + `)(?:\s*<[^>{]*>)?(?:\s+extends\s+(` + ident + `(?:\.` + ident + `)*))?(?:\s+implements\s+[^{]+)?\s*\{`)
	methodPattern    = regexp.MustCompile(`(?m)^\s*(?:(?:public|private|protected|static|readonly|override|abstract|get|set)\s+)*(async\s+)?\*?\s*(#?` + ident + `)\s*(?:<[^>(]*>)?\s*\(([^)]*)\)\s*(?::\s*[^{;]+?)?\s*\{`)
	interfacePattern = regexp.MustCompile(`(?m)(?:^|[^\w$.])interface\s+(` + ident + `)(?:\s*<[^>{]*>)?(?:\s+extends\s+[^{]+)?\s*\{`)
	typePattern      = regexp.MustCompile(`(?m)(?:^|[;\s])type\s+(` + ident + `)(?:\s*<[^>=]*>)?\s*=`)
	constantPattern  = regexp.MustCompile(`(?m)^\s*(?:export\s+)?const\s+([A-Z][A-Z0-9_]*)\s*(?::[^=]+)?=`)

	exportDefaultPattern = regexp.MustCompile(`export\s+default\s+(?:async\s+)?(?:(?:abstract\s+)?class\s+|function\s*\*?\s*|const\s+|let\s+|var\s+)?(` + ident + `)`)
	exportDeclPattern    = regexp.MustCompile(`export\s+(?:declare\s+)?(?:async\s+)?(?:const|let|var|function\s*\*?|(?:abstract\s+)?class|interface|type|enum)\s+(` + ident + `)`)
	exportListPattern    = regexp.MustCompile(`export\s*(?:type\s*)?\{([^}]*)\}`)

	whitespace = regexp.MustCompile(`\s+`)
)

var controlKeywords = map[string]bool{
	"if":       true,
	"for":      true,
	"while":    true,
	"switch":   true,
	"catch":    true,
	"function": true,
	"return":   true,
	"with":     true,
}

// reservedExportNames shows up when "export default" is followed by an
// anonymous function or class.
var reservedExportNames = map[string]bool{"function": true, "class": true, "async": true}

// positioned pairs an extracted value with its byte offset so results from
// several patterns can be merged in source order.
type positioned[T any] struct {
	offset int
	value  T
}

func extractScript(content []byte, lang language.Language) (*Facts, error) {
	src := string(content)
	lines := newLineIndex(src)
	facts := newFacts(string(lang))

	facts.Imports = scriptImports(src)
	facts.Functions = scriptFunctions(src, lines)
	facts.Classes = scriptClasses(src, lines)
	facts.Interfaces = firstGroups(src, interfacePattern)
	facts.Types = firstGroups(src, typePattern)
	facts.Constants = firstGroups(src, constantPattern)
	facts.Exports = scriptExports(src)
	return facts, nil
}

func scriptImports(src string) []string {
	var found []positioned[string]
	for _, m := range importFromPattern.FindAllStringSubmatchIndex(src, -1) {
		clause := whitespace.ReplaceAllString(strings.TrimSpace(src[m[2]:m[3]]), " ")
		found = append(found, positioned[string]{m[2], "import " + clause + " from '" + src[m[4]:m[5]] + "'"})
	}
	for _, m := range importBarePattern.FindAllStringSubmatchIndex(src, -1) {
		found = append(found, positioned[string]{m[2], "import '" + src[m[2]:m[3]] + "'"})
	}
	for _, m := range importRequirePattern.FindAllStringSubmatchIndex(src, -1) {
		found = append(found, positioned[string]{m[2], "require('" + src[m[2]:m[3]] + "')"})
	}
	return dedupe(values(found))
}

func scriptFunctions(src string, lines lineIndex) []Function {
	var found []positioned[Function]
	for i, pattern := range functionPatterns {
		g := functionGroups[i]
		for _, m := range pattern.FindAllStringSubmatchIndex(src, -1) {
			nameStart := m[2*g[0]]
			fn := Function{
				Name:  src[nameStart:m[2*g[0]+1]],
				Args:  scriptArgs(group(src, m, g[2])),
				Line:  lines.lineAt(nameStart),
				Async: m[2*g[1]] >= 0,
			}
			if ret := strings.TrimSpace(group(src, m, g[3])); ret != "" {
				fn.Returns = stringPtr(ret)
			}
			found = append(found, positioned[Function]{nameStart, fn})
		}
	}

	sort.SliceStable(found, func(a, b int) bool { return found[a].offset < found[b].offset })
	seen := map[string]bool{}
	var out []Function
	for _, f := range found {
		if seen[f.value.Name] {
			continue
		}
		seen[f.value.Name] = true
		out = append(out, f.value)
	}
	return out
}

// scriptClasses finds class declarations and collects the methods declared
// directly inside each class body, located by brace matching.
func scriptClasses(src string, lines lineIndex) []Class {
	var out []Class
	seen := map[string]bool{}
	for _, m := range classPattern.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[2]:m[3]]
		if seen[name] {
			continue
		}
		seen[name] = true

		class := Class{
			Name:    name,
			Methods: []Method{},
			Line:    lines.lineAt(m[2]),
			Bases:   []string{},
		}
		if base := group(src, m, 2); base != "" {
			class.Bases = append(class.Bases, base)
		}

		open := m[1] - 1
		if end := matchingBrace(src, open); end > open {
			class.Methods = classMethods(src[open+1:end], open+1, lines)
		}
		out = append(out, class)
	}
	return out
}

func classMethods(body string, bodyOffset int, lines lineIndex) []Method {
	depths := braceDepths(body)
	methods := []Method{}
	seen := map[string]bool{}
	for _, m := range methodPattern.FindAllStringSubmatchIndex(body, -1) {
		nameStart := m[4]
		name := body[nameStart:m[5]]
		if depths[nameStart] != 0 || controlKeywords[name] || seen[name] {
			continue
		}
		seen[name] = true
		methods = append(methods, Method{
			Name: name,
			Args: scriptArgs(body[m[6]:m[7]]),
			Line: lines.lineAt(bodyOffset + nameStart),
		})
	}
	return methods
}

func scriptExports(src string) []string {
	var found []positioned[string]
	for _, pattern := range []*regexp.Regexp{exportDefaultPattern, exportDeclPattern} {
		for _, m := range pattern.FindAllStringSubmatchIndex(src, -1) {
			name := src[m[2]:m[3]]
			if reservedExportNames[name] {
				continue
			}
			found = append(found, positioned[string]{m[2], name})
		}
	}
	for _, m := range exportListPattern.FindAllStringSubmatchIndex(src, -1) {
		for _, item := range strings.Split(src[m[2]:m[3]], ",") {
			fields := strings.Fields(item)
			if len(fields) == 0 {
				continue
			}
			// "a as b" exports b.
			found = append(found, positioned[string]{m[2], fields[len(fields)-1]})
		}
	}
	return dedupe(values(found))
}

// scriptArgs reduces a parameter list to bare parameter names, dropping
// defaults, type annotations and rest markers.
func scriptArgs(params string) []string {
	args := []string{}
	for _, p := range splitTopLevel(params) {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "..."))
		if i := strings.IndexAny(p, "=:?"); i >= 0 {
			p = strings.TrimSpace(p[:i])
		}
		if p != "" {
			args = append(args, p)
		}
	}
	return args
}

// splitTopLevel splits on commas that are not nested in brackets, so
// destructured parameters stay in one piece.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '{', '[', '(', '<':
			depth++
		case '}', ']', ')', '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// matchingBrace returns the offset of the brace closing the one at open,
// skipping string literals and comments, or -1 if it is never closed.
func matchingBrace(src string, open int) int {
	depth := 0
	for i := open; i < len(src); i++ {
		switch c := src[i]; c {
		case '\'', '"', '`':
			i = skipString(src, i, c)
		case '/':
			i = skipComment(src, i)
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// braceDepths maps each offset of body to its brace nesting depth.
func braceDepths(body string) []int {
	depths := make([]int, len(body)+1)
	depth := 0
	for i := 0; i < len(body); i++ {
		depths[i] = depth
		switch c := body[i]; c {
		case '\'', '"', '`':
			end := skipString(body, i, c)
			for j := i + 1; j <= end && j < len(body); j++ {
				depths[j] = depth
			}
			i = end
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	depths[len(body)] = depth
	return depths
}

func skipString(src string, start int, quote byte) int {
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return len(src)
}

func skipComment(src string, start int) int {
	if start+1 >= len(src) {
		return start
	}
	switch src[start+1] {
	case '/':
		if end := strings.IndexByte(src[start:], '\n'); end >= 0 {
			return start + end
		}
		return len(src)
	case '*':
		if end := strings.Index(src[start+2:], "*/"); end >= 0 {
			return start + 2 + end + 1
		}
		return len(src)
	}
	return start
}

func firstGroups(src string, pattern *regexp.Regexp) []string {
	var out []string
	for _, m := range pattern.FindAllStringSubmatch(src, -1) {
		out = append(out, m[1])
	}
	return dedupe(out)
}

func group(src string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return src[m[2*n]:m[2*n+1]]
}

func values[T any](found []positioned[T]) []T {
	sort.SliceStable(found, func(a, b int) bool { return found[a].offset < found[b].offset })
	out := make([]T, 0, len(found))
	for _, f := range found {
		out = append(out, f.value)
	}
	return out
}

// lineIndex holds the offsets of every newline in a source text.
type lineIndex []int

func newLineIndex(src string) lineIndex {
	var idx lineIndex
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx = append(idx, i)
		}
	}
	return idx
}

// lineAt returns the 1-based line of offset.
func (l lineIndex) lineAt(offset int) int {
	return sort.SearchInts(l, offset) + 1
}
