package extract

import "fmt"

// Facts are the structural facts pulled out of one file.
// Empty lists are omitted from the JSON form.
type Facts struct {
	Language   string     `json:"language"`
	Imports    []string   `json:"imports,omitempty"`
	Functions  []Function `json:"functions,omitempty"`
	Classes    []Class    `json:"classes,omitempty"`
	Constants  []string   `json:"constants,omitempty"`
	Exports    []string   `json:"exports,omitempty"`
	Interfaces []string   `json:"interfaces,omitempty"`
	Types      []string   `json:"types,omitempty"`

	// Set for generic files only.
	Lines int    `json:"lines,omitempty"`
	Kind  string `json:"type,omitempty"`
}

// Function describes a top-level function declaration.
type Function struct {
	Name    string   `json:"name"`
	Args    []string `json:"args"`
	Returns *string  `json:"returns"`
	Line    int      `json:"line"`
	Async   bool     `json:"async"`
}

// Method describes a function declared directly in a class body.
type Method struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
	Line int      `json:"line"`
}

// Class describes a class (or, for Go, a struct type with its methods).
type Class struct {
	Name    string   `json:"name"`
	Methods []Method `json:"methods"`
	Line    int      `json:"line"`
	Bases   []string `json:"bases"`
}

// Error is returned when a file cannot be read or parsed. The file is left
// out of the report.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newFacts(lang string) *Facts {
	return &Facts{Language: lang}
}

// dedupe drops repeated names, keeping the first occurrence.
func dedupe(names []string) []string {
	if len(names) == 0 {
		return names
	}
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func stringPtr(s string) *string {
	return &s
}
