package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// formattingRules describes the style rules checked by the formatting analyzer
var formattingRules = map[string]string{
	"E111": "indentation is not a multiple of four",
	"E225": "missing whitespace around operator",
	"E231": "missing whitespace after ','",
	"E261": "at least two spaces before inline comment",
	"E262": "inline comment should start with '# '",
	"E501": "line too long",
	"E703": "statement ends with a semicolon",
	"E711": "comparison to None should be 'is' or 'is not'",
	"W191": "indentation contains tabs",
	"W291": "trailing whitespace",
}

// maxRuleFindings limits how many rule groups are surfaced
const maxRuleFindings = 5

var noneComparison = regexp.MustCompile(`(==|!=)\s*None\b|\bNone\s*(==|!=)`)

// violation is one style rule hit
type violation struct {
	Rule string
	Cell int
	Line int
}

// ruleGroup aggregates violations of one rule
type ruleGroup struct {
	Rule      string
	Count     int
	FirstCell int
	FirstLine int
}

type formattingAnalyzer struct {
	params Params
}

func (a *formattingAnalyzer) ID() MetricID       { return MetricFormatting }
func (a *formattingAnalyzer) Category() Category { return CategoryBuilder }

// Analyze scores style-rule violation density:
// 100 - min(100, violationsPer100LogicalLines * FormattingK)
func (a *formattingAnalyzer) Analyze(src *notebook.Sources) MetricResult {
	sc, base := prepare(a, src, a.params)
	if base != nil {
		return *base
	}
	res := newResult(a.ID(), a.Category())

	violations := checkStyle(sc, a.params.MaxLineLength)
	logical := len(sc.statements())
	per100 := ratio(len(violations), logical) * 100
	score := 100 - clamp(per100*a.params.FormattingK, 0, 100)

	// Group violations by rule, most frequent first
	groups := groupViolations(violations)
	byRule := make(map[string]int, len(groups))
	for i, g := range groups {
		byRule[g.Rule] = g.Count
		if i >= maxRuleFindings {
			continue
		}
		desc := formattingRules[g.Rule]
		if g.Rule == "E501" {
			desc = fmt.Sprintf("%s (> %d characters)", desc, a.params.MaxLineLength)
		}
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  fmt.Sprintf("%s %s: %d occurrence(s), first at cell %d line %d", g.Rule, desc, g.Count, g.FirstCell, g.FirstLine),
			Cell:     cellRef(g.FirstCell),
			Severity: SeverityMinor,
		})
	}

	res.Evidence["violations"] = len(violations)
	res.Evidence["logical_lines"] = logical
	res.Evidence["violations_per_100_lines"] = round2(per100)
	res.Evidence["k"] = a.params.FormattingK
	res.Evidence["by_rule"] = byRule

	var summary string
	if len(violations) == 0 {
		summary = fmt.Sprintf("No style violations found in %d logical lines", logical)
	} else {
		summary = fmt.Sprintf("Found %d style violations in %d logical lines (%.1f per 100 lines)", len(violations), logical, per100)
	}
	return finish(res, score, summary, sc)
}

// checkStyle applies every formatting rule to the scanned code
func checkStyle(sc *scan, maxLen int) []violation {
	var out []violation
	for _, cell := range sc.Cells {
		starts := make(map[int]bool, len(cell.Statements))
		for _, s := range cell.Statements {
			starts[s.Line] = true
		}

		for _, l := range cell.Lines {
			if l.Magic {
				continue
			}
			hit := func(rule string) {
				out = append(out, violation{Rule: rule, Cell: l.Cell, Line: l.Number})
			}

			if utf8.RuneCountInString(l.Raw) > maxLen {
				hit("E501")
			}
			if strings.TrimSpace(l.Raw) != "" && strings.TrimRight(l.Raw, " \t") != l.Raw {
				hit("W291")
			}
			if l.InString || strings.TrimSpace(l.Raw) == "" {
				continue
			}
			if l.TabIndent {
				hit("W191")
			} else if starts[l.Number] && l.Indent%4 != 0 {
				hit("E111")
			}

			if l.Inline {
				if !strings.HasSuffix(l.Code, "  ") {
					hit("E261")
				}
				if rest := l.Raw[len(l.Code)+1:]; !strings.HasPrefix(rest, " ") {
					hit("E262")
				}
			}

			masked := strings.TrimRight(l.Masked, " \t\\")
			if starts[l.Number] {
				for i := 0; i < missingOperatorSpace(masked); i++ {
					hit("E225")
				}
			}
			for i := 0; i < missingCommaSpace(masked); i++ {
				hit("E231")
			}
			if strings.HasSuffix(masked, ";") {
				hit("E703")
			}
			if noneComparison.MatchString(masked) {
				hit("E711")
			}
		}
	}
	return out
}

// missingOperatorSpace counts assignment and comparison operators outside brackets
// that are not surrounded by whitespace
func missingOperatorSpace(masked string) int {
	const opChars = "=!<>+-*/%&|^@:"
	count, depth := 0, 0
	for i := 0; i < len(masked); i++ {
		switch c := masked[i]; c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth > 0 {
				continue
			}
			start, end := i, i+1
			for start > 0 && strings.IndexByte(opChars, masked[start-1]) >= 0 {
				start--
			}
			if end < len(masked) && masked[end] == '=' {
				end++
			}
			if start == 0 || masked[start-1] != ' ' || (end < len(masked) && masked[end] != ' ') {
				count++
			}
			i = end - 1
		}
	}
	return count
}

// missingCommaSpace counts commas not followed by whitespace or a closing bracket
func missingCommaSpace(masked string) int {
	count := 0
	for i := 0; i < len(masked)-1; i++ {
		if masked[i] != ',' {
			continue
		}
		switch masked[i+1] {
		case ' ', '\t', ')', ']', '}':
		default:
			count++
		}
	}
	return count
}

// groupViolations groups violations by rule, sorted by count desc then rule code
func groupViolations(violations []violation) []ruleGroup {
	index := make(map[string]int)
	var groups []ruleGroup
	for _, v := range violations {
		i, ok := index[v.Rule]
		if !ok {
			index[v.Rule] = len(groups)
			groups = append(groups, ruleGroup{Rule: v.Rule, FirstCell: v.Cell, FirstLine: v.Line})
			i = len(groups) - 1
		}
		groups[i].Count++
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Rule < groups[j].Rule
	})
	return groups
}
