package analyzer

import (
	"strings"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// codeLine is one physical line of a code cell after scanning
type codeLine struct {
	Cell       int    // Original cell index
	Number     int    // 1-based line number within the cell
	Raw        string // Original text
	Code       string // Text without the comment
	Masked     string // Code with string literal contents removed
	Comment    string // Comment text after '#'
	HasComment bool
	Inline     bool // Comment follows code on the same line
	Indent     int  // Leading whitespace width, tabs expanded to 8
	TabIndent  bool // Leading whitespace contains a tab
	InString   bool // Line starts inside a multi-line string
	Docstring  bool
	Magic      bool // IPython magic or shell escape
}

// IsCode reports whether the line carries executable source
func (l codeLine) IsCode() bool {
	return !l.Magic && !l.Docstring && strings.TrimSpace(l.Code) != ""
}

// statement is a logical line: physical lines joined across brackets and backslashes
type statement struct {
	Cell      int
	Line      int // First physical line, 1-based within the cell
	End       int // Last physical line
	Indent    int
	Depth     int    // Block nesting depth within the cell
	Text      string // Comment-free source with continuation lines joined by a space
	Masked    string // Text with string literal contents removed
	Docstring bool
}

// scannedCell holds the scan of a single code cell
type scannedCell struct {
	Index      int
	Lines      []codeLine
	Statements []statement
	Partial    bool // A string or bracket was left open
}

// scan is the tokenized view of all code cells
type scan struct {
	Cells   []scannedCell
	Partial []int // Indices of partially tokenized cells
}

// scanState carries tokenizer state across the lines of a cell
type scanState struct {
	quote  byte // Open string delimiter, 0 outside strings
	triple bool
	depth  int  // Open brackets
	broken bool // A single-quoted string ran past the end of its line
}

// scanSources tokenizes the logical program of src cell by cell
func scanSources(src *notebook.Sources, ignoreMagics bool) *scan {
	sc := &scan{}
	if src == nil {
		return sc
	}

	// Group program lines by the cell their boundary marker opens
	index := -1
	var lines []string
	emit := func() {
		if index < 0 {
			return
		}
		cell := scanLines(index, lines, ignoreMagics)
		if cell.Partial {
			sc.Partial = append(sc.Partial, cell.Index)
		}
		sc.Cells = append(sc.Cells, cell)
	}
	for _, pl := range src.Program().Lines {
		if pl.Boundary {
			emit()
			index, lines = pl.Cell, nil
			continue
		}
		lines = append(lines, pl.Text)
	}
	emit()
	return sc
}

// scanCell tokenizes one code cell
func scanCell(c notebook.Cell, ignoreMagics bool) scannedCell {
	return scanLines(c.Index, notebook.SplitLines(c.Source), ignoreMagics)
}

// scanLines tokenizes the lines of the code cell at index
func scanLines(index int, lines []string, ignoreMagics bool) scannedCell {
	out := scannedCell{Index: index}

	// A leading %% line turns the whole cell into a cell magic
	cellMagic := false
	if ignoreMagics {
		for _, l := range lines {
			t := strings.TrimSpace(l)
			if t == "" {
				continue
			}
			cellMagic = strings.HasPrefix(t, "%%")
			break
		}
	}

	var st scanState
	var cur *statement
	var text, masked []string
	continued := false // previous line ended with a backslash

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.Join(text, " ")
		cur.Masked = strings.Join(masked, " ")
		out.Statements = append(out.Statements, *cur)
		cur = nil
		text, masked = nil, nil
	}

	for i, raw := range lines {
		line := codeLine{Cell: index, Number: i + 1, Raw: raw, InString: st.quote != 0}
		line.Indent, line.TabIndent = measureIndent(raw)

		trimmed := strings.TrimSpace(raw)
		atStart := st.quote == 0 && st.depth == 0 && !continued
		if cellMagic || (ignoreMagics && atStart && isMagic(trimmed)) {
			line.Magic = true
			out.Lines = append(out.Lines, line)
			continue
		}

		line.Code, line.Masked, line.Comment, line.HasComment = scanLine(raw, &st)
		line.Inline = line.HasComment && strings.TrimSpace(line.Code) != ""
		out.Lines = append(out.Lines, line)

		piece := strings.TrimSpace(line.Code)
		if cur == nil {
			if piece == "" {
				continue
			}
			cur = &statement{Cell: index, Line: i + 1, Indent: line.Indent}
		}
		if piece != "" {
			text = append(text, strings.TrimSuffix(piece, "\\"))
			masked = append(masked, strings.TrimSuffix(strings.TrimSpace(line.Masked), "\\"))
		}
		cur.End = i + 1

		continued = st.quote == 0 && strings.HasSuffix(strings.TrimRight(line.Code, " \t"), "\\")
		if st.quote == 0 && st.depth == 0 && !continued {
			flush()
		}
	}

	if st.quote != 0 || st.depth > 0 || st.broken {
		out.Partial = true
	}
	flush()

	assignDepths(out.Statements)
	markDocstrings(&out)
	return out
}

// scanLine splits a physical line into code and comment, blanking string contents
func scanLine(line string, st *scanState) (code, masked, comment string, hasComment bool) {
	var cb, mb strings.Builder
	i := 0
	for i < len(line) {
		c := line[i]

		if st.quote != 0 {
			if c == '\\' && i+1 < len(line) {
				cb.WriteString(line[i : i+2])
				i += 2
				continue
			}
			if c == st.quote {
				if !st.triple {
					cb.WriteByte(c)
					mb.WriteByte(c)
					st.quote = 0
					i++
					continue
				}
				if strings.HasPrefix(line[i:], strings.Repeat(string(c), 3)) {
					cb.WriteString(line[i : i+3])
					mb.WriteString(line[i : i+3])
					st.quote, st.triple = 0, false
					i += 3
					continue
				}
			}
			cb.WriteByte(c)
			i++
			continue
		}

		switch c {
		case '#':
			return cb.String(), mb.String(), strings.TrimSpace(line[i+1:]), true
		case '"', '\'':
			if strings.HasPrefix(line[i:], strings.Repeat(string(c), 3)) {
				cb.WriteString(line[i : i+3])
				mb.WriteString(line[i : i+3])
				st.quote, st.triple = c, true
				i += 3
				continue
			}
			st.quote = c
		case '(', '[', '{':
			st.depth++
		case ')', ']', '}':
			if st.depth > 0 {
				st.depth--
			}
		}
		cb.WriteByte(c)
		mb.WriteByte(c)
		i++
	}

	// Single-quoted strings only continue past a trailing backslash
	if st.quote != 0 && !st.triple && !strings.HasSuffix(line, "\\") {
		st.quote = 0
		st.broken = true
	}
	return cb.String(), mb.String(), "", false
}

// isMagic reports whether a statement-start line is an IPython magic or shell escape
func isMagic(trimmed string) bool {
	return strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, "!")
}

// measureIndent returns the indentation width and whether it contains tabs
func measureIndent(line string) (int, bool) {
	width, tabs := 0, false
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			tabs = true
			width += 8 - width%8
		default:
			return width, tabs
		}
	}
	// Whitespace-only lines have no indentation
	return 0, false
}

// assignDepths derives block nesting depth from the indentation stack
func assignDepths(stmts []statement) {
	stack := []int{0}
	for i := range stmts {
		indent := stmts[i].Indent
		if indent > stack[len(stack)-1] {
			stack = append(stack, indent)
		} else {
			for len(stack) > 1 && stack[len(stack)-1] > indent {
				stack = stack[:len(stack)-1]
			}
		}
		stmts[i].Depth = len(stack) - 1
	}
}

// markDocstrings flags string-only statements that open a cell, function or class
func markDocstrings(cell *scannedCell) {
	for i := range cell.Statements {
		s := &cell.Statements[i]
		if !isStringOnly(s.Masked) {
			continue
		}
		if i > 0 && !isDefinitionHeader(cell.Statements[i-1].Masked) {
			continue
		}

		s.Docstring = true
		for j := range cell.Lines {
			if n := cell.Lines[j].Number; n >= s.Line && n <= s.End {
				cell.Lines[j].Docstring = true
			}
		}
	}
}

// isStringOnly reports whether masked source is nothing but string literals
func isStringOnly(masked string) bool {
	t := strings.TrimSpace(masked)
	if t == "" {
		return false
	}
	var rest strings.Builder
	for _, part := range strings.Fields(t) {
		rest.WriteString(strings.TrimLeft(part, "rRbBuUfF"))
	}
	s := rest.String()
	return s != "" && strings.Trim(s, `"'`) == ""
}

// isDefinitionHeader reports whether masked source opens a def or class block
func isDefinitionHeader(masked string) bool {
	t := strings.TrimSpace(masked)
	if !strings.HasSuffix(t, ":") {
		return false
	}
	t = strings.TrimPrefix(t, "async ")
	return strings.HasPrefix(t, "def ") || strings.HasPrefix(t, "class ")
}

// lines returns every scanned line in program order
func (sc *scan) lines() []codeLine {
	var out []codeLine
	for _, c := range sc.Cells {
		out = append(out, c.Lines...)
	}
	return out
}

// statements returns every logical statement in program order
func (sc *scan) statements() []statement {
	var out []statement
	for _, c := range sc.Cells {
		out = append(out, c.Statements...)
	}
	return out
}

// codeLineCount returns the number of lines carrying executable source
func (sc *scan) codeLineCount() int {
	n := 0
	for _, c := range sc.Cells {
		for _, l := range c.Lines {
			if l.IsCode() {
				n++
			}
		}
	}
	return n
}
