// Package hook formats the output the host tool reads after an indexing run:
// a one-line JSON event on stdout and a short human summary on stderr.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lexandro/projectindex/report"
)

// EventPostToolUse is the host event the indexer runs under.
const EventPostToolUse = "PostToolUse"

// Output is the JSON document the host tool parses from stdout.
type Output struct {
	HookSpecificOutput SpecificOutput `json:"hookSpecificOutput"`
}

// SpecificOutput carries text the host adds to the assistant's context.
type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// IndexUpdated builds the event announcing a fresh report.
func IndexUpdated(reportName string, summary report.Summary) Output {
	return Output{HookSpecificOutput: SpecificOutput{
		HookEventName: EventPostToolUse,
		AdditionalContext: fmt.Sprintf("%s updated - %d files analyzed in %ss",
			reportName, summary.AnalyzedFiles, FormatSeconds(summary.GenerationTimeSeconds)),
	}}
}

// Emit writes out as a single JSON line.
func Emit(w io.Writer, out Output) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding hook output: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing hook output: %w", err)
	}
	return nil
}

// WriteSummary prints the human-readable run summary.
func WriteSummary(w io.Writer, reportName string, summary report.Summary) {
	fmt.Fprintf(w, "Generated %s\n", reportName)
	fmt.Fprintf(w, "Stats: %d analyzed, %d cached, %d functions, %d classes\n",
		summary.AnalyzedFiles, summary.CachedFiles, summary.TotalFunctions, summary.TotalClasses)
	fmt.Fprintf(w, "Time: %ss\n", FormatSeconds(summary.GenerationTimeSeconds))
}

// FormatSeconds renders seconds with the shortest exact decimal, always
// keeping one fractional digit: 0.5 → "0.5", 2 → "2.0".
func FormatSeconds(seconds float64) string {
	s := strconv.FormatFloat(seconds, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
