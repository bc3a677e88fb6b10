package analyzer

import "fmt"

// Diagnose performs integrated analysis across metrics to detect notebook-level problems
func Diagnose(results []MetricResult, categories []CategoryScore, th Thresholds) []Diagnostic {
	diagnostics := []Diagnostic{}

	byID := make(map[MetricID]MetricResult, len(results))
	for _, r := range results {
		byID[r.MetricID] = r
	}

	// Detect failed analyzers
	diagnostics = append(diagnostics, detectFailures(results)...)

	// Detect unavailable categories
	diagnostics = append(diagnostics, detectUnavailableCategories(categories)...)

	// Detect metrics scoring below the poor threshold
	diagnostics = append(diagnostics, detectWeakMetrics(results, th)...)

	// Detect monolithic notebooks
	diagnostics = append(diagnostics, detectMonolithicNotebook(byID, th)...)

	// Detect charts nobody explains
	diagnostics = append(diagnostics, detectUndocumentedVisuals(byID, th)...)

	return diagnostics
}

// detectFailures reports every analyzer that could not produce a score
func detectFailures(results []MetricResult) []Diagnostic {
	var out []Diagnostic
	for _, r := range results {
		if r.Status != StatusFailed {
			continue
		}
		reason := ""
		if len(r.Findings) > 0 {
			reason = r.Findings[0].Message
		}
		out = append(out, Diagnostic{
			Type:       "Analyzer Failure",
			TargetName: string(r.MetricID),
			Message: fmt.Sprintf(
				"Metric '%s' could not be computed and was excluded from the %s score. %s",
				r.MetricID, r.Category, reason,
			),
			Severity: "Critical",
			Evidence: map[string]interface{}{
				"metric":   r.MetricID,
				"category": r.Category,
				"error":    r.Evidence["error"],
			},
			RelatedPath: fmt.Sprintf("#metric-%s", r.MetricID),
		})
	}
	return out
}

// detectUnavailableCategories reports categories whose metrics all failed
func detectUnavailableCategories(categories []CategoryScore) []Diagnostic {
	var out []Diagnostic
	for _, c := range categories {
		if c.Status != CategoryUnavailable {
			continue
		}
		out = append(out, Diagnostic{
			Type:       "Unavailable Category",
			TargetName: string(c.Category),
			Message: fmt.Sprintf(
				"No metric of category '%s' produced a score. The overall score is based on the remaining categories only.",
				c.Category,
			),
			Severity: "Critical",
			Evidence: map[string]interface{}{
				"category": c.Category,
				"weight":   c.Weight,
			},
			RelatedPath: fmt.Sprintf("#category-%s", c.Category),
		})
	}
	return out
}

// detectWeakMetrics reports metrics below the poor threshold
// Criteria: Score < Poor
func detectWeakMetrics(results []MetricResult, th Thresholds) []Diagnostic {
	var out []Diagnostic
	for _, r := range results {
		if r.Score == nil || *r.Score >= th.Poor {
			continue
		}
		out = append(out, Diagnostic{
			Type:       "Weak Metric",
			TargetName: string(r.MetricID),
			Message: fmt.Sprintf(
				"Metric '%s' scored %.1f, below the poor threshold of %.0f. %s",
				r.MetricID, *r.Score, th.Poor, firstNegative(r),
			),
			Severity: "Warning",
			Evidence: map[string]interface{}{
				"score":     *r.Score,
				"threshold": th.Poor,
			},
			RelatedPath: fmt.Sprintf("#metric-%s", r.MetricID),
		})
	}
	return out
}

// detectMonolithicNotebook detects notebooks written as long, repetitive scripts
// Criteria: code_structure < Fair AND code_conciseness < Fair
func detectMonolithicNotebook(byID map[MetricID]MetricResult, th Thresholds) []Diagnostic {
	structure, ok1 := scoreBelow(byID, MetricStructure, th.Fair)
	conciseness, ok2 := scoreBelow(byID, MetricConciseness, th.Fair)
	if !ok1 || !ok2 {
		return nil
	}

	return []Diagnostic{{
		Type:       "Monolithic Notebook",
		TargetName: string(CategoryBuilder),
		Message: fmt.Sprintf(
			"The notebook is poorly decomposed (structure=%.1f) and repeats itself (conciseness=%.1f). Consider extracting repeated steps into functions.",
			structure, conciseness,
		),
		Severity: "Warning",
		Evidence: map[string]interface{}{
			"code_structure":   structure,
			"code_conciseness": conciseness,
			"threshold":        th.Fair,
		},
		RelatedPath: fmt.Sprintf("#metric-%s", MetricStructure),
	}}
}

// detectUndocumentedVisuals detects charts that are neither formatted nor explained
// Criteria: charts present AND visualization_formatting < Fair AND code_comments < Fair
func detectUndocumentedVisuals(byID map[MetricID]MetricResult, th Thresholds) []Diagnostic {
	types, ok := byID[MetricVisualTypes]
	if !ok {
		return nil
	}
	charts, _ := types.Evidence["charts"].(int)
	if charts == 0 {
		return nil
	}

	format, ok1 := scoreBelow(byID, MetricVisualFormat, th.Fair)
	comments, ok2 := scoreBelow(byID, MetricComments, th.Fair)
	if !ok1 || !ok2 {
		return nil
	}

	return []Diagnostic{{
		Type:       "Undocumented Visuals",
		TargetName: string(CategoryBusiness),
		Message: fmt.Sprintf(
			"%d charts lack titles or labels (formatting=%.1f) and the code around them is sparsely commented (comments=%.1f). Readers cannot tell what the charts show.",
			charts, format, comments,
		),
		Severity: "Warning",
		Evidence: map[string]interface{}{
			"charts":                   charts,
			"visualization_formatting": format,
			"code_comments":            comments,
			"threshold":                th.Fair,
		},
		RelatedPath: fmt.Sprintf("#metric-%s", MetricVisualFormat),
	}}
}

// scoreBelow returns a metric's score and whether it is defined and below limit
func scoreBelow(byID map[MetricID]MetricResult, id MetricID, limit float64) (float64, bool) {
	r, ok := byID[id]
	if !ok || r.Score == nil {
		return 0, false
	}
	return *r.Score, *r.Score < limit
}

// firstNegative returns the first negative finding message of a result
func firstNegative(r MetricResult) string {
	for _, f := range r.Findings {
		if f.Polarity == Negative {
			return f.Message
		}
	}
	return ""
}
