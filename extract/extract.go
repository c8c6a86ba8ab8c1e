// Package extract pulls imports, functions, classes and exported symbols out
// of single source files. Every extractor is a pure function of the file
// content.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/lexandro/projectindex/language"
)

// File reads filePath and extracts its facts according to lang.
// Any read or parse failure is returned as an *Error.
func File(ctx context.Context, filePath string, lang language.Language) (*Facts, error) {
	content, err := readFileWithRetry(filePath)
	if err != nil {
		return nil, &Error{Path: filePath, Err: err}
	}
	return Content(ctx, filePath, lang, content)
}

// ErrInvalidUTF8 rejects source files that are not UTF-8 text.
var ErrInvalidUTF8 = errors.New("content is not valid UTF-8")

// Content extracts facts from content that was already read from filePath.
// Python and script sources must be valid UTF-8; generic files are only
// labelled, so any bytes are accepted.
func Content(ctx context.Context, filePath string, lang language.Language, content []byte) (facts *Facts, err error) {
	defer func() {
		if r := recover(); r != nil {
			facts, err = nil, &Error{Path: filePath, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if (lang == language.Python || lang.Script()) && !utf8.Valid(content) {
		return nil, &Error{Path: filePath, Err: ErrInvalidUTF8}
	}

	switch {
	case lang == language.Python:
		facts, err = extractPython(ctx, content)
	case lang == language.Go:
		facts, err = extractGo(filePath, content)
	case lang.Script():
		facts, err = extractScript(content, lang)
	default:
		facts = extractGeneric(filePath, content)
	}
	if err != nil {
		return nil, &Error{Path: filePath, Err: err}
	}
	return facts, nil
}

// readFileWithRetry attempts to read a file, retrying once after a short delay
// if the file is locked (common on Windows when editors are saving).
func readFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if os.IsNotExist(err) {
		return nil, err
	}
	time.Sleep(50 * time.Millisecond)
	return os.ReadFile(path)
}
