package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lexandro/projectindex/extract"
	"github.com/lexandro/projectindex/report"
	"github.com/lexandro/projectindex/search"
	"github.com/lexandro/projectindex/store"
)

// FormatSymbolResults formats symbol search results, one per line as
// "path:line  kind  name".
func FormatSymbolResults(results []search.Symbol, total int) string {
	if len(results) == 0 {
		return "No symbols found."
	}

	var builder strings.Builder
	if total > len(results) {
		builder.WriteString(fmt.Sprintf("Found %d symbols (showing %d):\n\n", total, len(results)))
	} else {
		builder.WriteString(fmt.Sprintf("Found %d symbols:\n\n", total))
	}

	for _, s := range results {
		location := s.Path
		if s.Line > 0 {
			location = fmt.Sprintf("%s:%d", s.Path, s.Line)
		}
		name := s.Name
		if s.Parent != "" {
			name = s.Parent + "." + s.Name
		}
		builder.WriteString(fmt.Sprintf("  %s  %s  %s\n", location, s.Kind, name))
	}

	return builder.String()
}

// FormatFileResults formats analyzed files matched by a glob.
func FormatFileResults(results []*report.FileRecord, nameOnly bool) string {
	if len(results) == 0 {
		return "No files matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(results)))

	for _, record := range results {
		if nameOnly {
			builder.WriteString(record.Path)
			builder.WriteString("\n")
			continue
		}
		builder.WriteString(fmt.Sprintf("  %s  (%s, %s, %s, %s)\n",
			record.Path,
			record.Language,
			humanize.Bytes(uint64(record.Size)),
			plural(len(record.Functions), "function"),
			plural(len(record.Classes), "class"),
		))
	}

	return builder.String()
}

// FormatOutline renders the extracted structure of one file.
func FormatOutline(record *report.FileRecord) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s (%s, %s) ──\n", record.Path, record.Language, humanize.Bytes(uint64(record.Size))))

	if record.Kind != "" {
		builder.WriteString(fmt.Sprintf("%s file, %s\n", record.Kind, plural(record.Lines, "line")))
		return builder.String()
	}

	writeList(&builder, "Imports", record.Imports)

	if len(record.Functions) > 0 {
		builder.WriteString("Functions:\n")
		for _, f := range record.Functions {
			builder.WriteString(fmt.Sprintf("  %d: %s\n", f.Line, functionSignature(f)))
		}
	}

	if len(record.Classes) > 0 {
		builder.WriteString("Classes:\n")
		for _, c := range record.Classes {
			header := c.Name
			if len(c.Bases) > 0 {
				header += "(" + strings.Join(c.Bases, ", ") + ")"
			}
			builder.WriteString(fmt.Sprintf("  %d: %s\n", c.Line, header))
			for _, m := range c.Methods {
				builder.WriteString(fmt.Sprintf("    %d: %s(%s)\n", m.Line, m.Name, strings.Join(m.Args, ", ")))
			}
		}
	}

	writeList(&builder, "Interfaces", record.Interfaces)
	writeList(&builder, "Types", record.Types)
	writeList(&builder, "Constants", record.Constants)
	writeList(&builder, "Exports", record.Exports)

	return builder.String()
}

// FormatRuns renders run history rows relative to now.
func FormatRuns(runs []store.Run, now time.Time) string {
	var builder strings.Builder
	for _, run := range runs {
		status := "ok"
		if !run.Success {
			status = "failed"
		}
		builder.WriteString(fmt.Sprintf("  %-16s %-6s %d files (%d cached) in %s",
			humanize.RelTime(run.StartedAt, now, "ago", "from now"),
			status,
			run.AnalyzedFiles,
			run.CachedFiles,
			run.Duration.Round(time.Millisecond),
		))
		if run.Error != "" {
			builder.WriteString(": " + run.Error)
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func functionSignature(f extract.Function) string {
	signature := fmt.Sprintf("%s(%s)", f.Name, strings.Join(f.Args, ", "))
	if f.Async {
		signature = "async " + signature
	}
	if f.Returns != nil {
		signature += " -> " + *f.Returns
	}
	return signature
}

func writeList(builder *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	builder.WriteString(title + ":\n")
	for _, item := range items {
		builder.WriteString("  " + item + "\n")
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "s") {
		return fmt.Sprintf("%d %ses", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
