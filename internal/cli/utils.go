// Package cli provides output helpers for the Kensho CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/kensho/internal/models"
	"github.com/hyperjump/kensho/pkg/utils"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteRAGContext writes a retrieval result to w in the given format.
func WriteRAGContext(w io.Writer, ragCtx *models.RAGContext, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, ragCtx)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(ragCtx.Items), ragCtx.QueryTime)
	for _, item := range ragCtx.Items {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%s] Rank: %d | Score: %.4f (source score: %.4f)\n",
			item.Source, item.Rank, item.Score, item.SourceScore)
		fmt.Fprintf(w, "ID: %s\n", item.ID)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(item.Content, 200))
	}
	if len(ragCtx.KnownEntities) > 0 {
		names := make([]string, 0, len(ragCtx.KnownEntities))
		for name := range ragCtx.KnownEntities {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "Known entities: %s\n", strings.Join(names, ", "))
	}
	return nil
}

// WriteValidationResult writes a validation result to w in the given format.
func WriteValidationResult(w io.Writer, result *models.ValidationResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	if result.Valid {
		fmt.Fprintln(w, "VALID")
	} else {
		fmt.Fprintln(w, "INVALID")
	}
	fmt.Fprintf(w, "referenced: %d  verified: %d  missing: %d\n",
		len(result.ReferencedEntities), len(result.VerifiedEntities), len(result.MissingEntities))
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "  [%s] %s", issue.Severity, issue.Message)
		if issue.Suggestion != "" {
			fmt.Fprintf(w, " (did you mean %q?)", issue.Suggestion)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

