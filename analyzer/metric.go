package analyzer

import (
	"fmt"
	"math"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// Analyzer turns notebook sources into one bounded, deterministic metric
type Analyzer interface {
	ID() MetricID
	Category() Category
	Analyze(src *notebook.Sources) MetricResult
}

// Params holds the tunable constants of the analyzers
type Params struct {
	MaxLineLength      int     `mapstructure:"max_line_length" yaml:"max_line_length"`
	FormattingK        float64 `mapstructure:"formatting_k" yaml:"formatting_k"`               // Score lost per violation per 100 lines
	TechniqueIncrement float64 `mapstructure:"technique_increment" yaml:"technique_increment"` // Score per distinct technique category
	MonolithLines      int     `mapstructure:"monolith_lines" yaml:"monolith_lines"`           // Code lines above which a cell is monolithic
	IgnoreMagics       bool    `mapstructure:"ignore_magic_commands" yaml:"ignore_magic_commands"`
}

// DefaultParams returns the default analyzer constants
func DefaultParams() Params {
	return Params{
		MaxLineLength:      79,
		FormattingK:        2.5,
		TechniqueIncrement: 20,
		MonolithLines:      50,
		IgnoreMagics:       true,
	}
}

// baselineScore is returned for notebooks without analyzable code
const baselineScore = 50.0

// newResult starts an ok result for the given metric
func newResult(id MetricID, category Category) MetricResult {
	return MetricResult{
		MetricID: id,
		Category: category,
		Status:   StatusOK,
		Evidence: map[string]interface{}{},
	}
}

// prepare scans src and returns a baseline result when there is nothing to analyze
func prepare(a Analyzer, src *notebook.Sources, p Params) (*scan, *MetricResult) {
	if src.Empty() {
		res := baseline(a, "Notebook has no cells; neutral baseline score applied")
		return nil, &res
	}

	sc := scanSources(src, p.IgnoreMagics)
	if sc.codeLineCount() == 0 {
		res := baseline(a, "Notebook has no code to analyze; neutral baseline score applied")
		return nil, &res
	}
	return sc, nil
}

// baseline returns the neutral result for input without code
func baseline(a Analyzer, message string) MetricResult {
	res := newResult(a.ID(), a.Category())
	res.Score = scoreOf(baselineScore)
	res.Findings = []Finding{{Polarity: Positive, Message: message, Severity: SeverityInfo}}
	res.Evidence["baseline"] = true
	return res
}

// finish sets the score, prepends the summary finding and applies degradation
func finish(res MetricResult, score float64, summary string, sc *scan) MetricResult {
	score = round2(clamp(score, 0, 100))
	res.Score = scoreOf(score)
	res.Findings = append([]Finding{summaryFinding(score, summary)}, res.Findings...)

	if sc != nil && len(sc.Partial) > 0 {
		res.Status = StatusDegraded
		for _, idx := range sc.Partial {
			res.Findings = append(res.Findings, Finding{
				Polarity: Negative,
				Message:  fmt.Sprintf("Cell %d has an unclosed string or bracket; score is best-effort", idx),
				Cell:     cellRef(idx),
				Severity: SeverityMinor,
			})
		}
		res.Evidence["partial_cells"] = sc.Partial
	}
	return res
}

// summaryFinding builds the leading finding that explains the score
func summaryFinding(score float64, message string) Finding {
	switch {
	case score >= 50:
		return Finding{Polarity: Positive, Message: message, Severity: SeverityInfo}
	case score >= 25:
		return Finding{Polarity: Negative, Message: message, Severity: SeverityMinor}
	default:
		return Finding{Polarity: Negative, Message: message, Severity: SeverityMajor}
	}
}

func scoreOf(v float64) *float64 {
	return &v
}

func cellRef(idx int) *int {
	return &idx
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ratio returns n/d, or 0 when d is zero
func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
