package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// Comment ratio band and bonuses
const (
	idealCommentRatioLow  = 0.10
	idealCommentRatioHigh = 0.40
	overCommentFloor      = 50.0
	lowValuePenalty       = 20.0
	informativeWords      = 6.0
	informativeBonus      = 10.0
	narrativeBonus        = 5.0
	minCommentWords       = 3
)

var (
	boilerplateComment = regexp.MustCompile(`(?i)^(todo|fixme|xxx|hack|imports?|code|cell|comment|test|temp|tmp|%%.*|[-=*#~_ ]+)$`)
	commentedOutCode   = regexp.MustCompile(`^(import \w|from \S+ import |print\(|return\b|def \w+\(|class \w+|for \w+ in |while .+:$|if .+:$|[\w.\[\]'"]+\s*[-+*/]?=\s*[^=\s]|[\w.]+\(.*\)$)`)
)

// comment is one standalone, inline or docstring comment
type comment struct {
	Cell  int
	Text  string
	Lines int
}

type commentsAnalyzer struct {
	params Params
}

func (a *commentsAnalyzer) ID() MetricID       { return MetricComments }
func (a *commentsAnalyzer) Category() Category { return CategoryBuilder }

// Analyze scores the comment-to-code ratio, adjusted for informativeness and narrative cells
func (a *commentsAnalyzer) Analyze(src *notebook.Sources) MetricResult {
	sc, base := prepare(a, src, a.params)
	if base != nil {
		return *base
	}
	res := newResult(a.ID(), a.Category())

	comments := collectComments(sc)
	commentLines := 0
	totalWords := 0
	var lowValue []comment
	for _, c := range comments {
		commentLines += c.Lines
		totalWords += len(strings.Fields(c.Text))
		if isLowValueComment(c.Text) {
			lowValue = append(lowValue, c)
		}
	}
	codeLines := sc.codeLineCount()
	commentRatio := ratio(commentLines, codeLines)
	meanWords := ratio(totalWords, len(comments))
	lowShare := ratio(len(lowValue), len(comments))

	// Calculate base score from the ratio band
	var score float64
	switch {
	case commentRatio < idealCommentRatioLow:
		score = 100 * commentRatio / idealCommentRatioLow
	case commentRatio <= idealCommentRatioHigh:
		score = 100
	default:
		over := (commentRatio - idealCommentRatioHigh) / idealCommentRatioHigh
		score = clamp(100-over*(100-overCommentFloor), overCommentFloor, 100)
	}

	score -= lowValuePenalty * lowShare
	if len(comments) > 0 && meanWords >= informativeWords {
		score += informativeBonus
		res.Findings = append(res.Findings, Finding{
			Polarity: Positive,
			Message:  fmt.Sprintf("Comments are descriptive (%.1f words on average)", meanWords),
			Severity: SeverityInfo,
		})
	}

	markdown := len(src.Markdown)
	if markdown > 0 && float64(markdown) >= float64(len(src.Code))/3 {
		score += narrativeBonus
		res.Findings = append(res.Findings, Finding{
			Polarity: Positive,
			Message:  fmt.Sprintf("%d markdown cells explain the analysis", markdown),
			Severity: SeverityInfo,
		})
	} else {
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  fmt.Sprintf("Only %d markdown cells accompany %d code cells; add narrative between steps", markdown, len(src.Code)),
			Severity: SeverityMinor,
		})
	}

	if len(lowValue) > 0 {
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  fmt.Sprintf("%d of %d comments are too short, boilerplate or commented-out code", len(lowValue), len(comments)),
			Cell:     cellRef(lowValue[0].Cell),
			Severity: SeverityMinor,
		})
	}
	if commentRatio > idealCommentRatioHigh {
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  "Comments outweigh the code they describe; prefer fewer, more precise comments",
			Severity: SeverityInfo,
		})
	}

	res.Evidence["comment_lines"] = commentLines
	res.Evidence["code_lines"] = codeLines
	res.Evidence["comment_ratio"] = round2(commentRatio)
	res.Evidence["comments"] = len(comments)
	res.Evidence["mean_words"] = round2(meanWords)
	res.Evidence["low_value_comments"] = len(lowValue)
	res.Evidence["markdown_cells"] = markdown

	summary := fmt.Sprintf("%d comment lines for %d lines of code (ratio %.2f, ideal %.2f to %.2f)",
		commentLines, codeLines, commentRatio, idealCommentRatioLow, idealCommentRatioHigh)
	return finish(res, score, summary, sc)
}

// collectComments gathers standalone, inline and docstring comments in program order
func collectComments(sc *scan) []comment {
	var out []comment
	for _, cell := range sc.Cells {
		for _, l := range cell.Lines {
			if l.Magic || !l.HasComment {
				continue
			}
			out = append(out, comment{Cell: l.Cell, Text: l.Comment, Lines: 1})
		}
		for _, s := range cell.Statements {
			if !s.Docstring {
				continue
			}
			text := strings.Trim(strings.TrimLeft(s.Text, "rRuU"), `"' `)
			out = append(out, comment{Cell: s.Cell, Text: text, Lines: s.End - s.Line + 1})
		}
	}
	return out
}

// isLowValueComment reports short, boilerplate and commented-out-code comments
func isLowValueComment(text string) bool {
	t := strings.TrimSpace(text)
	if len(strings.Fields(t)) < minCommentWords {
		return true
	}
	return boilerplateComment.MatchString(t) || commentedOutCode.MatchString(t)
}
