package reporter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
)

// ErrUnsupportedFormat is returned for an unknown report format
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Format is a report output format
type Format string

const (
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats
var Formats = []Format{FormatJSON, FormatHTML, FormatMarkdown}

// ParseFormat normalizes a format name; "md" is accepted for markdown
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatHTML, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w %q: use one of %s", ErrUnsupportedFormat, s, FormatNames())
	}
}

// FormatNames returns the supported format names separated by commas
func FormatNames() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Extension returns the file extension for the format
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	default:
		return "." + string(f)
	}
}

// Options selects how reports are written
type Options struct {
	Format    Format
	OutputDir string // Empty writes to the provided stdout writer
	Root      string // Analysis root; report files mirror notebook directories below it
}

// Render writes reports to w in the given format
func Render(w io.Writer, reports []*analyzer.Report, format Format) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, reports)
	case FormatHTML:
		return renderHTML(w, reports)
	case FormatMarkdown:
		return renderMarkdown(w, reports)
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

// Write renders reports according to opts. Without an output directory all
// reports go to stdout; otherwise each report gets its own file, and the
// written paths are returned. Two reports mapping to the same file is an error.
func Write(stdout io.Writer, reports []*analyzer.Report, opts Options) ([]string, error) {
	if opts.OutputDir == "" {
		return nil, Render(stdout, reports, opts.Format)
	}

	// Plan every path first so a collision writes nothing
	paths := make([]string, len(reports))
	owners := make(map[string]string, len(reports))
	for i, r := range reports {
		path := ReportPath(r, opts)
		if prev, ok := owners[path]; ok {
			return nil, fmt.Errorf("reports for %s and %s would both be written to %s", prev, r.Notebook.Path, path)
		}
		owners[path] = r.Notebook.Path
		paths[i] = path
	}

	for i, r := range reports {
		if err := os.MkdirAll(filepath.Dir(paths[i]), 0o755); err != nil {
			return paths[:i], fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := WriteFile(paths[i], []*analyzer.Report{r}, opts.Format); err != nil {
			return paths[:i], err
		}
	}
	return paths, nil
}

// ReportPath returns where a report is written under opts.OutputDir. A notebook
// in a subdirectory of opts.Root keeps that subdirectory.
func ReportPath(r *analyzer.Report, opts Options) string {
	return filepath.Join(opts.OutputDir, relativeDir(r.Notebook.Path, opts.Root), FileName(r, opts.Format))
}

// relativeDir returns the directory of notebookPath relative to root, or "" when it lies outside
func relativeDir(notebookPath, root string) string {
	if notebookPath == "" || root == "" {
		return ""
	}
	rel, err := filepath.Rel(root, filepath.Dir(notebookPath))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return rel
}

// WriteFile renders reports into a single file at outputPath
func WriteFile(outputPath string, reports []*analyzer.Report, format Format) error {
	// Create output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := Render(file, reports, format); err != nil {
		return err
	}
	return file.Close()
}

// FileName returns the report file name of a notebook, e.g. sales.health.json
func FileName(r *analyzer.Report, format Format) string {
	base := strings.TrimSuffix(r.Notebook.Name, filepath.Ext(r.Notebook.Name))
	if base == "" {
		base = r.NotebookID
	}
	return base + ".health" + format.Extension()
}
