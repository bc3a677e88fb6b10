package notebook

import (
	"fmt"
	"strings"
)

// BoundaryPrefix starts every cell-boundary marker line of a logical program
const BoundaryPrefix = "# %% [cell "

// Sources holds the code and markdown streams of a notebook
type Sources struct {
	Code       []Cell // Code cells in document order
	Markdown   []Cell // Markdown cells in document order
	TotalCells int    // Number of code and markdown cells
}

// ProgramLine maps one line of the logical program back to its cell
type ProgramLine struct {
	Cell     int    // Original cell index
	Line     int    // 1-based line number within the cell (0 for boundary markers)
	Text     string // Line text without the trailing newline
	Boundary bool   // True for cell-boundary marker lines
}

// Program is the concatenation of all code cells
type Program struct {
	Text  string
	Lines []ProgramLine
}

// Extract partitions a notebook into its code and markdown streams.
// A notebook without cells yields empty Sources together with ErrEmptyNotebook.
func Extract(nb *Notebook) (*Sources, error) {
	src := &Sources{}
	if nb == nil {
		return src, ErrEmptyNotebook
	}

	for _, c := range nb.Cells {
		switch c.Kind {
		case KindCode:
			src.Code = append(src.Code, c)
		case KindMarkdown:
			src.Markdown = append(src.Markdown, c)
		}
	}
	src.TotalCells = len(src.Code) + len(src.Markdown)

	if src.TotalCells == 0 {
		return src, ErrEmptyNotebook
	}
	return src, nil
}

// Empty reports whether the notebook had no cells at all
func (s *Sources) Empty() bool {
	return s == nil || s.TotalCells == 0
}

// Program joins code cells with boundary markers so lines stay traceable to cells
func (s *Sources) Program() Program {
	var prog Program
	if s == nil {
		return prog
	}

	var sb strings.Builder
	for _, c := range s.Code {
		marker := fmt.Sprintf("%s%d]", BoundaryPrefix, c.Index)
		sb.WriteString(marker)
		sb.WriteByte('\n')
		prog.Lines = append(prog.Lines, ProgramLine{Cell: c.Index, Text: marker, Boundary: true})

		for i, line := range SplitLines(c.Source) {
			sb.WriteString(line)
			sb.WriteByte('\n')
			prog.Lines = append(prog.Lines, ProgramLine{Cell: c.Index, Line: i + 1, Text: line})
		}
	}

	prog.Text = sb.String()
	return prog
}

// SplitLines splits cell text into lines, dropping a single trailing newline
func SplitLines(source string) []string {
	if source == "" {
		return nil
	}
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.TrimSuffix(source, "\n")
	return strings.Split(source, "\n")
}
