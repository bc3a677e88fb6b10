package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// Sub-metric weights of the structure score
const (
	structureModularityWeight = 0.35
	structureFuncSizeWeight   = 0.25
	structureNestingWeight    = 0.20
	structureMonolithWeight   = 0.20
)

const (
	linesPerDefinition = 40 // Code lines one definition is expected to cover
	idealFuncLines     = 20
	maxFuncLines       = 80
	maxNestingDepth    = 3
	nestingPenalty     = 20
)

// definition is a function or class found in the code
type definition struct {
	Name   string
	Kind   string   // "function" or "class"
	Cell   int
	Line   int
	Lines  int      // Physical lines spanned by the definition
	Body   []string // Masked text of the body statements
	Nested bool     // Header is indented, e.g. a method inside a class
}

type structureAnalyzer struct {
	params Params
}

func (a *structureAnalyzer) ID() MetricID       { return MetricStructure }
func (a *structureAnalyzer) Category() Category { return CategoryBuilder }

// Analyze scores modular decomposition as a weighted mean of modularity,
// function size, nesting depth and monolithic-cell share
func (a *structureAnalyzer) Analyze(src *notebook.Sources) MetricResult {
	sc, base := prepare(a, src, a.params)
	if base != nil {
		return *base
	}
	res := newResult(a.ID(), a.Category())

	defs := findDefinitions(sc)
	codeLines := sc.codeLineCount()

	// Calculate modularity
	units := math.Ceil(float64(codeLines) / linesPerDefinition)
	modularity := 100 * math.Min(1, float64(len(defs))/units)

	// Calculate function size
	var funcs, funcLines int
	for _, d := range defs {
		if d.Kind == "function" {
			funcs++
			funcLines += d.Lines
		}
	}
	avgFunc := ratio(funcLines, funcs)
	funcSize := 50.0
	if funcs > 0 {
		funcSize = 100 * clamp((maxFuncLines-avgFunc)/(maxFuncLines-idealFuncLines), 0, 1)
	}

	// Calculate nesting
	depth := 0
	for _, s := range sc.statements() {
		if s.Depth > depth {
			depth = s.Depth
		}
	}
	nesting := clamp(100-float64(nestingPenalty*(depth-maxNestingDepth)), 0, 100)

	// Calculate monolithic share
	var monolithic []int
	monolithicLines := 0
	for _, cell := range sc.Cells {
		n := 0
		for _, l := range cell.Lines {
			if l.IsCode() {
				n++
			}
		}
		if n > a.params.MonolithLines {
			monolithic = append(monolithic, cell.Index)
			monolithicLines += n
			res.Findings = append(res.Findings, Finding{
				Polarity: Negative,
				Message:  fmt.Sprintf("Cell %d holds %d lines of code; consider splitting it into smaller cells or functions", cell.Index, n),
				Cell:     cellRef(cell.Index),
				Severity: SeverityMinor,
			})
		}
	}
	monolithShare := ratio(monolithicLines, codeLines)
	monolith := 100 * (1 - monolithShare)

	score := structureModularityWeight*modularity +
		structureFuncSizeWeight*funcSize +
		structureNestingWeight*nesting +
		structureMonolithWeight*monolith

	if len(defs) == 0 {
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  "No functions or classes are defined; all logic runs at the top level",
			Severity: SeverityMinor,
		})
	}
	if funcs > 0 && avgFunc > idealFuncLines {
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  fmt.Sprintf("Functions average %.1f lines; aim for %d or fewer", avgFunc, idealFuncLines),
			Severity: SeverityMinor,
		})
	}
	if depth > maxNestingDepth {
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  fmt.Sprintf("Blocks are nested %d levels deep; flatten logic deeper than %d levels", depth, maxNestingDepth),
			Severity: SeverityMinor,
		})
	}

	res.Evidence["definitions"] = len(defs)
	res.Evidence["functions"] = funcs
	res.Evidence["classes"] = len(defs) - funcs
	res.Evidence["code_lines"] = codeLines
	res.Evidence["avg_function_lines"] = round2(avgFunc)
	res.Evidence["max_nesting_depth"] = depth
	res.Evidence["monolithic_cells"] = monolithic
	res.Evidence["monolithic_share"] = round2(monolithShare)
	res.Evidence["sub_scores"] = map[string]float64{
		"modularity":    round2(modularity),
		"function_size": round2(funcSize),
		"nesting":       round2(nesting),
		"monolith":      round2(monolith),
	}

	summary := fmt.Sprintf("%d functions and %d classes across %d lines of code; maximum nesting depth %d",
		funcs, len(defs)-funcs, codeLines, depth)
	return finish(res, score, summary, sc)
}

// findDefinitions returns every def and class statement with its body
func findDefinitions(sc *scan) []definition {
	var defs []definition
	for _, cell := range sc.Cells {
		stmts := cell.Statements
		for i, s := range stmts {
			name, kind, ok := parseDefinition(s.Masked)
			if !ok {
				continue
			}

			d := definition{Name: name, Kind: kind, Cell: cell.Index, Line: s.Line, Lines: s.End - s.Line + 1, Nested: s.Indent > 0}
			for _, b := range stmts[i+1:] {
				if b.Indent <= s.Indent {
					break
				}
				d.Lines = b.End - s.Line + 1
				d.Body = append(d.Body, b.Masked)
			}
			defs = append(defs, d)
		}
	}
	return defs
}

// parseDefinition extracts the name of a def or class header
func parseDefinition(masked string) (name, kind string, ok bool) {
	t := strings.TrimSpace(masked)
	t = strings.TrimPrefix(t, "async ")
	switch {
	case strings.HasPrefix(t, "def "):
		kind, t = "function", strings.TrimPrefix(t, "def ")
	case strings.HasPrefix(t, "class "):
		kind, t = "class", strings.TrimPrefix(t, "class ")
	default:
		return "", "", false
	}

	t = strings.TrimSpace(t)
	end := strings.IndexAny(t, "(:[ ")
	if end <= 0 {
		return "", "", false
	}
	return t[:end], kind, true
}
