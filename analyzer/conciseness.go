package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

const (
	duplicateWindow     = 3   // Statements per compared window
	duplicatePenaltyCap = 70.0
	duplicateFactor     = 200.0
	lengthPenaltyCap    = 30.0
	hardLineLimit       = 120
	maxRegionFindings   = 5
)

var (
	numberLiteral = regexp.MustCompile(`\b\d+(\.\d+)?([eE][-+]?\d+)?\b`)
	stringLiteral = regexp.MustCompile(`[rRbBuUfF]{0,2}("""|'''|"|')+`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// window is a run of consecutive statements within one cell
type window struct {
	Cell  int
	Start int // Index of the first statement within the cell
}

func (w window) before(o window) bool {
	if w.Cell != o.Cell {
		return w.Cell < o.Cell
	}
	return w.Start < o.Start
}

type concisenessAnalyzer struct {
	params Params
}

func (a *concisenessAnalyzer) ID() MetricID       { return MetricConciseness }
func (a *concisenessAnalyzer) Category() Category { return CategoryBuilder }

// Analyze penalizes duplicated statement blocks and long lines:
// 100 - min(70, dupRatio*200) - min(30, longShare*100)
func (a *concisenessAnalyzer) Analyze(src *notebook.Sources) MetricResult {
	sc, base := prepare(a, src, a.params)
	if base != nil {
		return *base
	}
	res := newResult(a.ID(), a.Category())

	// Normalize statements per cell, skipping docstrings
	normalized := make([][]string, len(sc.Cells))
	total := 0
	for i, cell := range sc.Cells {
		for _, s := range cell.Statements {
			if s.Docstring {
				continue
			}
			normalized[i] = append(normalized[i], normalizeStatement(s.Masked))
		}
		total += len(normalized[i])
	}

	// Index every window by its normalized text
	occurrences := make(map[string][]window)
	var order []string
	for i, stmts := range normalized {
		for start := 0; start+duplicateWindow <= len(stmts); start++ {
			k := strings.Join(stmts[start:start+duplicateWindow], "\n")
			if _, seen := occurrences[k]; !seen {
				order = append(order, k)
			}
			occurrences[k] = append(occurrences[k], window{Cell: sc.Cells[i].Index, Start: start})
		}
	}

	// Link copies of the same window and overlapping duplicated windows into regions
	rs := newRegionSet()
	duplicated := make(map[window]bool)
	repeated := make(map[[2]int]bool) // cell and statement index covered by a non-first copy
	for _, k := range order {
		occ := occurrences[k]
		if len(occ) < 2 {
			continue
		}
		for j, w := range occ {
			duplicated[w] = true
			rs.link(occ[0], w)
			if j == 0 {
				continue
			}
			for s := w.Start; s < w.Start+duplicateWindow; s++ {
				repeated[[2]int{w.Cell, s}] = true
			}
		}
	}
	for w := range duplicated {
		next := window{Cell: w.Cell, Start: w.Start + 1}
		if duplicated[next] {
			rs.link(w, next)
		}
	}

	var regions [][]int
	for _, windows := range rs.regions() {
		regions = append(regions, regionCells(windows))
	}
	sort.SliceStable(regions, func(i, j int) bool { return len(regions[i]) > len(regions[j]) })
	for i, cells := range regions {
		if i >= maxRegionFindings {
			break
		}
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  fmt.Sprintf("Duplicated code block appears in cells %s; extract it into a function", joinInts(cells)),
			Cell:     cellRef(cells[0]),
			Severity: SeverityMinor,
		})
	}

	// Calculate long line share
	var overLimit, overHard int
	codeLines := 0
	for _, l := range sc.lines() {
		if !l.IsCode() {
			continue
		}
		codeLines++
		n := utf8.RuneCountInString(l.Raw)
		if n > a.params.MaxLineLength {
			overLimit++
		}
		if n > hardLineLimit {
			overHard++
		}
	}
	if overHard > 0 {
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  fmt.Sprintf("%d lines exceed %d characters", overHard, hardLineLimit),
			Severity: SeverityMinor,
		})
	}

	dupRatio := ratio(len(repeated), total)
	longShare := ratio(overLimit+overHard, codeLines)
	score := 100 - clamp(dupRatio*duplicateFactor, 0, duplicatePenaltyCap) - clamp(longShare*100, 0, lengthPenaltyCap)

	res.Evidence["statements"] = total
	res.Evidence["duplicated_statements"] = len(repeated)
	res.Evidence["duplication_ratio"] = round2(dupRatio)
	res.Evidence["duplicated_regions"] = len(regions)
	res.Evidence["lines_over_limit"] = overLimit
	res.Evidence["lines_over_120"] = overHard
	res.Evidence["long_line_share"] = round2(longShare)

	summary := fmt.Sprintf("%.0f%% of statements are repeated and %d of %d code lines exceed %d characters",
		dupRatio*100, overLimit, codeLines, a.params.MaxLineLength)
	return finish(res, score, summary, sc)
}

// normalizeStatement masks literals and whitespace so near-duplicates compare equal
func normalizeStatement(masked string) string {
	s := stringLiteral.ReplaceAllString(masked, `""`)
	s = numberLiteral.ReplaceAllString(s, "0")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// regionCells returns the sorted distinct cells of a region
func regionCells(windows []window) []int {
	seen := make(map[int]bool)
	var cells []int
	for _, w := range windows {
		if seen[w.Cell] {
			continue
		}
		seen[w.Cell] = true
		cells = append(cells, w.Cell)
	}
	sort.Ints(cells)
	return cells
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
