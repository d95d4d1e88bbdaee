// Package report persists extraction results as JSON records and renders a
// human-readable Markdown digest. The JSON files are the authoritative
// serialization; the digest is a secondary view.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/crazyfrank/webclip/internal/extractor"
)

// WriteJSON writes one result per file into dir, named by index and title.
func WriteJSON(dir string, results []*extractor.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	for i, r := range results {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return errors.Wrapf(err, "failed to marshal result for %s", r.SourceURL)
		}
		path := filepath.Join(dir, fileName(i+1, r)+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
	}
	return nil
}

// WriteMarkdown writes one Markdown document per result into dir.
func WriteMarkdown(dir string, results []*extractor.Result, previewLen int, fullContent bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	for i, r := range results {
		var b strings.Builder
		writeResultMarkdown(&b, r, previewLen, fullContent)
		path := filepath.Join(dir, fileName(i+1, r)+".md")
		if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
	}
	return nil
}

// Digest renders the whole batch as one Markdown document with a summary
// header and a per-result section.
func Digest(w io.Writer, results []*extractor.Result, previewLen int) error {
	stats := extractor.Summarize(results)

	var b strings.Builder
	b.WriteString("# Extraction results\n\n")
	fmt.Fprintf(&b, "Total: %d | Succeeded: %d | Failed: %d | Words: %d\n\n",
		stats.Total, stats.Succeeded, stats.Failed, stats.TotalWords)
	if len(stats.ErrorKinds) > 0 {
		b.WriteString("Failures by kind:\n\n")
		for kind, n := range stats.ErrorKinds {
			fmt.Fprintf(&b, "- %s: %d\n", kind, n)
		}
		b.WriteString("\n")
	}
	b.WriteString("---\n\n")

	for i, r := range results {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, titleOrURL(r))
		writeResultMeta(&b, r)
		if r.Succeeded && r.Content != "" {
			b.WriteString("### Preview\n\n")
			b.WriteString(preview(r.Content, previewLen))
			b.WriteString("\n\n")
		}
		b.WriteString("---\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "failed to write digest")
}

// DigestJSON writes the whole batch as a single indented JSON array.
func DigestJSON(w io.Writer, results []*extractor.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return errors.Wrap(enc.Encode(results), "failed to encode results")
}

func writeResultMarkdown(b *strings.Builder, r *extractor.Result, previewLen int, fullContent bool) {
	fmt.Fprintf(b, "# %s\n\n", titleOrURL(r))
	writeResultMeta(b, r)
	if !r.Succeeded || r.Content == "" {
		return
	}
	b.WriteString("## Content\n\n")
	if fullContent {
		b.WriteString(r.Content)
		b.WriteString("\n")
	} else {
		b.WriteString(preview(r.Content, previewLen))
		b.WriteString("\n")
	}
}

func writeResultMeta(b *strings.Builder, r *extractor.Result) {
	fmt.Fprintf(b, "- **URL**: %s\n", r.SourceURL)
	if r.Platform != "" {
		fmt.Fprintf(b, "- **Platform**: %s\n", r.Platform)
	}
	fmt.Fprintf(b, "- **Words**: %d\n", r.WordCount)
	if r.Succeeded {
		b.WriteString("- **Status**: ok\n")
	} else {
		fmt.Fprintf(b, "- **Status**: failed (%s: %s)\n", r.ErrorKind, r.ErrorMessage)
	}
	if r.Author != "" {
		fmt.Fprintf(b, "- **Author**: %s\n", r.Author)
	}
	if r.PublishedAt != "" {
		fmt.Fprintf(b, "- **Published**: %s\n", r.PublishedAt)
	}
	fmt.Fprintf(b, "- **Extracted**: %s\n\n", r.ExtractedAt.Format("2006-01-02 15:04:05"))
}

func titleOrURL(r *extractor.Result) string {
	if r.Title != "" {
		return r.Title
	}
	return r.SourceURL
}

func preview(content string, n int) string {
	if n <= 0 {
		n = 500
	}
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "\n\n...(truncated)..."
}

// fileName builds a filesystem-safe name from the result index and title.
func fileName(index int, r *extractor.Result) string {
	title := r.Title
	if title == "" {
		title = r.SourceURL
	}
	var b strings.Builder
	for _, c := range title {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		case c == ' ':
			b.WriteRune('_')
		}
		if b.Len() >= 40 {
			break
		}
	}
	safe := strings.Trim(b.String(), "_")
	if safe == "" {
		safe = "article"
	}
	return fmt.Sprintf("%03d_%s", index, safe)
}
