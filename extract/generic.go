package extract

import (
	"bytes"

	"github.com/lexandro/projectindex/language"
)

// extractGeneric records only the line count and text/binary classification.
func extractGeneric(filePath string, content []byte) *Facts {
	facts := newFacts(language.DisplayName(filePath))
	if language.IsBinaryContent(content) {
		facts.Kind = "binary"
		return facts
	}
	facts.Kind = "text"
	if len(content) > 0 {
		facts.Lines = bytes.Count(content, []byte("\n")) + 1
		if content[len(content)-1] == '\n' {
			facts.Lines--
		}
	}
	return facts
}
