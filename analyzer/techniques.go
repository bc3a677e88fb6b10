package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// technique is one advanced language-feature category
type technique struct {
	Name  string
	Label string
	Match func(masked string) bool
}

var (
	comprehensionPattern = regexp.MustCompile(`[\[{(][^\]})]*\bfor\b[^\]})]*\bin\b`)
	higherOrderPattern   = regexp.MustCompile(`\blambda\b|\b(map|filter|reduce|partial)\s*\(|\.(apply|applymap|agg|transform|pipe)\s*\(`)
	yieldPattern         = regexp.MustCompile(`\byield\b`)
	paramHintPattern     = regexp.MustCompile(`\(.*\w\s*:\s*[\w\[]`)
	varHintPattern       = regexp.MustCompile(`^[A-Za-z_][\w.]*\s*:\s*[A-Za-z_][\w\[\], .|]*(\s*=.*)?$`)
)

// techniques lists the detected categories in report order
var techniques = []technique{
	{Name: "comprehension", Label: "comprehensions", Match: func(m string) bool {
		return !hasKeyword(m, "for") && comprehensionPattern.MatchString(m)
	}},
	{Name: "context_manager", Label: "context managers", Match: func(m string) bool {
		return hasKeyword(m, "with")
	}},
	{Name: "higher_order", Label: "higher-order functions", Match: higherOrderPattern.MatchString},
	{Name: "generator", Label: "generators", Match: yieldPattern.MatchString},
	{Name: "decorator", Label: "decorators", Match: func(m string) bool {
		return strings.HasPrefix(strings.TrimSpace(m), "@")
	}},
	{Name: "type_hints", Label: "type hints", Match: func(m string) bool {
		if _, kind, ok := parseDefinition(m); ok && kind == "function" {
			return strings.Contains(m, "->") || paramHintPattern.MatchString(m)
		}
		return varHintPattern.MatchString(strings.TrimSpace(m))
	}},
	{Name: "exception_handling", Label: "exception handling", Match: func(m string) bool {
		return hasKeyword(m, "try") || hasKeyword(m, "except")
	}},
}

// hasKeyword reports whether a statement starts with a block keyword
func hasKeyword(masked, keyword string) bool {
	t := strings.TrimPrefix(strings.TrimSpace(masked), "async ")
	return t == keyword+":" || strings.HasPrefix(t, keyword+" ") || strings.HasPrefix(t, keyword+":") || strings.HasPrefix(t, keyword+"(")
}

type techniquesAnalyzer struct {
	params Params
}

func (a *techniquesAnalyzer) ID() MetricID       { return MetricTechniques }
func (a *techniquesAnalyzer) Category() Category { return CategoryBuilder }

// Analyze adds a fixed increment per distinct technique category, capped at 100
func (a *techniquesAnalyzer) Analyze(src *notebook.Sources) MetricResult {
	sc, base := prepare(a, src, a.params)
	if base != nil {
		return *base
	}
	res := newResult(a.ID(), a.Category())

	counts := make(map[string]int, len(techniques))
	first := make(map[string]int, len(techniques))
	for _, s := range sc.statements() {
		if s.Docstring {
			continue
		}
		for _, t := range techniques {
			if !t.Match(s.Masked) {
				continue
			}
			if counts[t.Name] == 0 {
				first[t.Name] = s.Cell
			}
			counts[t.Name]++
		}
	}

	var used, missing []string
	for _, t := range techniques {
		if counts[t.Name] == 0 {
			missing = append(missing, t.Label)
			continue
		}
		used = append(used, t.Label)
		res.Findings = append(res.Findings, Finding{
			Polarity: Positive,
			Message:  fmt.Sprintf("Uses %s (%d occurrences)", t.Label, counts[t.Name]),
			Cell:     cellRef(first[t.Name]),
			Severity: SeverityInfo,
		})
	}
	if len(missing) > 0 {
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  "Not used: " + strings.Join(missing, ", "),
			Severity: SeverityInfo,
		})
	}

	score := clamp(float64(len(used))*a.params.TechniqueIncrement, 0, 100)

	res.Evidence["techniques"] = counts
	res.Evidence["distinct"] = len(used)
	res.Evidence["increment"] = a.params.TechniqueIncrement

	summary := fmt.Sprintf("Uses %d of %d advanced technique categories", len(used), len(techniques))
	return finish(res, score, summary, sc)
}
