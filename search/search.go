// Package search provides symbol lookup over an index report using an
// in-memory Bleve index. Every function, method, class, constant, interface
// and type alias in the report becomes one document.
package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/lexandro/projectindex/report"
)

// Symbol kinds.
const (
	KindFunction  = "function"
	KindMethod    = "method"
	KindClass     = "class"
	KindConstant  = "constant"
	KindInterface = "interface"
	KindType      = "type"
)

const defaultMaxResults = 50

// Symbol is one searchable definition. Line is zero for kinds the extractors
// record by name only.
type Symbol struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Line     int    `json:"line,omitempty"`
	Parent   string `json:"parent,omitempty"`
	Language string `json:"language"`
}

// Options configure a symbol search.
type Options struct {
	Query      string
	Kind       string
	FileGlob   string
	MaxResults int
}

// Index is a rebuildable symbol index.
type Index struct {
	mu      sync.RWMutex
	index   bleve.Index
	symbols map[string]Symbol
}

type symbolDocument struct {
	Name     string `json:"name"`
	Words    string `json:"words"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Language string `json:"language"`
}

// NewIndex creates an empty in-memory index.
func NewIndex() (*Index, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &Index{index: bleveIndex, symbols: make(map[string]Symbol)}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.IncludeInAll = true
	docMapping.AddFieldMappingsAt("name", nameField)

	wordsField := bleve.NewTextFieldMapping()
	wordsField.IncludeInAll = true
	docMapping.AddFieldMappingsAt("words", wordsField)

	for _, keyword := range []string{"kind", "path", "language"} {
		keywordField := bleve.NewKeywordFieldMapping()
		keywordField.IncludeInAll = false
		docMapping.AddFieldMappingsAt(keyword, keywordField)
	}

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Rebuild replaces the index contents with the symbols of r.
func (ix *Index) Rebuild(r *report.IndexReport) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating bleve index: %w", err)
	}

	symbols := make(map[string]Symbol)
	batch := fresh.NewBatch()
	for _, s := range Symbols(r) {
		id := symbolID(s)
		if _, dup := symbols[id]; dup {
			continue
		}
		symbols[id] = s
		doc := symbolDocument{
			Name:     s.Name,
			Words:    splitWords(s.Name),
			Kind:     s.Kind,
			Path:     s.Path,
			Language: s.Language,
		}
		if err := batch.Index(id, doc); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("indexing symbol %s: %w", id, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("indexing symbols: %w", err)
	}

	if ix.index != nil {
		_ = ix.index.Close()
	}
	ix.index = fresh
	ix.symbols = symbols
	return nil
}

// Search returns matching symbols, best match first. Query format:
//   - plain text: word match on names and their camelCase/snake_case parts
//   - "quoted text": phrase match over name parts
//   - /regex/: regexp over lower-cased names
//
// The second return value is the number of hits before truncation.
func (ix *Index) Search(options Options) ([]Symbol, int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if strings.TrimSpace(options.Query) == "" {
		return nil, 0, fmt.Errorf("empty query")
	}
	if options.MaxResults <= 0 {
		options.MaxResults = defaultMaxResults
	}
	glob := strings.ReplaceAll(options.FileGlob, "\\", "/")
	if glob != "" && !doublestar.ValidatePattern(glob) {
		return nil, 0, fmt.Errorf("invalid glob pattern: %s", options.FileGlob)
	}

	q := buildQuery(options.Query)
	if options.Kind != "" {
		kindQuery := bleve.NewTermQuery(options.Kind)
		kindQuery.SetField("kind")
		q = bleve.NewConjunctionQuery(q, kindQuery)
	}

	request := bleve.NewSearchRequest(q)
	request.Size = len(ix.symbols)
	if request.Size == 0 {
		return nil, 0, nil
	}
	result, err := ix.index.Search(request)
	if err != nil {
		return nil, 0, fmt.Errorf("searching index: %w", err)
	}

	var matches []Symbol
	total := 0
	for _, hit := range result.Hits {
		s, ok := ix.symbols[hit.ID]
		if !ok {
			continue
		}
		if glob != "" && !matchGlob(glob, s.Path) {
			continue
		}
		total++
		if len(matches) < options.MaxResults {
			matches = append(matches, s)
		}
	}
	return matches, total, nil
}

// Count returns the number of indexed symbols.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.symbols)
}

// Close releases the Bleve index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.index == nil {
		return nil
	}
	err := ix.index.Close()
	ix.index = nil
	return err
}

// Symbols flattens the definitions of r in path order.
func Symbols(r *report.IndexReport) []Symbol {
	var symbols []Symbol
	for _, p := range r.Paths() {
		record := r.Files[p]
		lang := record.Language
		for _, f := range record.Functions {
			symbols = append(symbols, Symbol{Name: f.Name, Kind: KindFunction, Path: p, Line: f.Line, Language: lang})
		}
		for _, c := range record.Classes {
			symbols = append(symbols, Symbol{Name: c.Name, Kind: KindClass, Path: p, Line: c.Line, Language: lang})
			for _, m := range c.Methods {
				symbols = append(symbols, Symbol{Name: m.Name, Kind: KindMethod, Path: p, Line: m.Line, Parent: c.Name, Language: lang})
			}
		}
		for _, name := range record.Constants {
			symbols = append(symbols, Symbol{Name: name, Kind: KindConstant, Path: p, Language: lang})
		}
		for _, name := range record.Interfaces {
			symbols = append(symbols, Symbol{Name: name, Kind: KindInterface, Path: p, Language: lang})
		}
		for _, name := range record.Types {
			symbols = append(symbols, Symbol{Name: name, Kind: KindType, Path: p, Language: lang})
		}
	}
	return symbols
}

// SortByLocation orders symbols by path, then line, then name.
func SortByLocation(symbols []Symbol) {
	sort.SliceStable(symbols, func(i, j int) bool {
		a, b := symbols[i], symbols[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})
}

func symbolID(s Symbol) string {
	return s.Path + "#" + s.Kind + "#" + s.Parent + "." + s.Name + "#" + strconv.Itoa(s.Line)
}

func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)

	if strings.HasPrefix(queryString, "/") && strings.HasSuffix(queryString, "/") && len(queryString) > 2 {
		regexpQuery := bleve.NewRegexpQuery(strings.ToLower(queryString[1 : len(queryString)-1]))
		regexpQuery.SetField("name")
		return regexpQuery
	}

	if strings.HasPrefix(queryString, "\"") && strings.HasSuffix(queryString, "\"") && len(queryString) > 2 {
		phraseQuery := bleve.NewMatchPhraseQuery(splitWords(queryString[1 : len(queryString)-1]))
		phraseQuery.SetField("words")
		return phraseQuery
	}

	return bleve.NewMatchQuery(queryString)
}

func matchGlob(pattern, p string) bool {
	if ok, err := doublestar.Match(pattern, p); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		base := p[strings.LastIndex(p, "/")+1:]
		ok, err := doublestar.Match(pattern, base)
		return err == nil && ok
	}
	return false
}

// splitWords breaks an identifier at underscores, dashes, dots, spaces and
// case transitions, returning the lower-cased parts joined by spaces.
// "parseHTTPRequest" becomes "parse http request".
func splitWords(identifier string) string {
	runes := []rune(identifier)
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}
	for i, r := range runes {
		if r == '_' || r == '-' || r == '.' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()
	return strings.Join(words, " ")
}
