package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

const (
	joinNeutralScore = 50.0
	joinKeyWeight    = 80.0
	joinHowWeight    = 20.0
)

var (
	joinCallPattern = regexp.MustCompile(`\b(merge_asof|merge_ordered|join_asof|merge|join|concat)\s*\(`)
	joinKeywordArg  = regexp.MustCompile(`\b(on|left_on|right_on|left_index|right_index|how|by|lsuffix|rsuffix)\s*=`)
	assignPattern   = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*=[^=]`)
	frameSource     = regexp.MustCompile(`\b(pd|pandas|polars|pl)\.|\bread_\w+\s*\(|\b(merge|concat|DataFrame)\s*\(`)
	receiverName    = regexp.MustCompile(`([A-Za-z_]\w*)\.$`)
)

// joinCall is one detected merge or join call
type joinCall struct {
	Func  string
	Cell  int
	Args  string
	Keyed bool
	How   bool
}

type joinAnalyzer struct {
	params Params
}

func (a *joinAnalyzer) ID() MetricID       { return MetricDatasetJoin }
func (a *joinAnalyzer) Category() Category { return CategoryBuilder }

// Analyze rewards joins with explicit keys: 80*keyedShare + 20*howShare,
// or a neutral 50 when the notebook has no key-based joins
func (a *joinAnalyzer) Analyze(src *notebook.Sources) MetricResult {
	sc, base := prepare(a, src, a.params)
	if base != nil {
		return *base
	}
	res := newResult(a.ID(), a.Category())

	var joins []joinCall
	concats := 0
	stmts := sc.statements()
	frames := frameNames(stmts)
	for _, s := range stmts {
		for _, call := range findJoinCalls(s, frames) {
			if call.Func == "concat" {
				concats++
				continue
			}
			joins = append(joins, call)
		}
	}

	keyed, withHow := 0, 0
	for _, j := range joins {
		if j.Keyed {
			keyed++
		} else {
			res.Findings = append(res.Findings, Finding{
				Polarity: Negative,
				Message:  fmt.Sprintf("%s call has no explicit join keys; specify on= or left_on=/right_on=", j.Func),
				Cell:     cellRef(j.Cell),
				Severity: SeverityMinor,
			})
		}
		if j.How {
			withHow++
		}
	}
	if concats > 0 {
		res.Findings = append(res.Findings, Finding{
			Polarity: Positive,
			Message:  fmt.Sprintf("%d concat calls combine datasets without keys", concats),
			Severity: SeverityInfo,
		})
	}

	var score float64
	var summary string
	if len(joins) == 0 {
		score = joinNeutralScore
		summary = "No key-based joins detected"
	} else {
		keyedShare := ratio(keyed, len(joins))
		howShare := ratio(withHow, len(joins))
		score = joinKeyWeight*keyedShare + joinHowWeight*howShare
		summary = fmt.Sprintf("%d of %d joins specify keys and %d specify the join type", keyed, len(joins), withHow)
		res.Evidence["keyed_share"] = round2(keyedShare)
		res.Evidence["how_share"] = round2(howShare)
	}

	res.Evidence["joins"] = len(joins)
	res.Evidence["keyed_joins"] = keyed
	res.Evidence["joins_with_how"] = withHow
	res.Evidence["concats"] = concats

	return finish(res, score, summary, sc)
}

// frameNames returns the variables assigned from DataFrame-producing expressions,
// following plain reassignments in program order
func frameNames(stmts []statement) map[string]bool {
	frames := make(map[string]bool)
	for _, s := range stmts {
		m := assignPattern.FindStringSubmatchIndex(s.Masked)
		if m == nil {
			continue
		}
		name := s.Masked[m[2]:m[3]]
		rhs := strings.TrimSpace(s.Masked[m[1]-1:])
		source := frameSource.MatchString(rhs)
		if !source {
			if lead := receiverLead(rhs); lead != "" && frames[lead] {
				source = true
			}
		}
		frames[name] = source
	}
	return frames
}

// receiverLead returns the identifier an expression starts with
func receiverLead(expr string) string {
	end := 0
	for end < len(expr) && (expr[end] == '_' || isAlnum(expr[end])) {
		end++
	}
	return expr[:end]
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// findJoinCalls returns the merge, join and concat calls of a statement.
// A .join call counts only with DataFrame arguments or a known DataFrame receiver.
func findJoinCalls(s statement, frames map[string]bool) []joinCall {
	var out []joinCall
	masked := s.Masked
	for _, m := range joinCallPattern.FindAllStringSubmatchIndex(masked, -1) {
		name := masked[m[2]:m[3]]
		receiver := strings.TrimSpace(masked[:m[2]])
		if strings.HasSuffix(receiver, "def") {
			continue
		}

		args := callArguments(masked, m[1]-1)
		kwargs := make(map[string]bool)
		for _, k := range joinKeywordArg.FindAllStringSubmatch(args, -1) {
			kwargs[k[1]] = true
		}

		if name == "join" {
			if !strings.HasSuffix(receiver, ".") {
				continue
			}
			frameArgs := kwargs["on"] || kwargs["how"] || kwargs["lsuffix"] || kwargs["rsuffix"]
			owner := receiverName.FindStringSubmatch(receiver)
			if !frameArgs && (owner == nil || !frames[owner[1]]) {
				continue
			}
		}

		out = append(out, joinCall{
			Func:  name,
			Cell:  s.Cell,
			Args:  args,
			Keyed: kwargs["on"] || (kwargs["left_on"] && kwargs["right_on"]) || kwargs["left_index"] || kwargs["right_index"],
			How:   kwargs["how"],
		})
	}
	return out
}

// callArguments returns the text between the parenthesis at open and its match
func callArguments(masked string, open int) string {
	depth := 0
	for i := open; i < len(masked); i++ {
		switch masked[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return masked[open+1 : i]
			}
		}
	}
	return masked[open+1:]
}
