package analyzer

import (
	"fmt"
	"math"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// Invoke runs a single analyzer and converts panics and broken results into failed results.
// The analyzer is only called inside the recovered scope.
func Invoke(a Analyzer, src *notebook.Sources) (res MetricResult) {
	var (
		id       MetricID
		category Category
	)
	defer func() {
		if r := recover(); r != nil {
			res = failed(id, category, fmt.Sprintf("analyzer panicked: %v", r))
		}
	}()

	id = a.ID()
	category = a.Category()
	res = a.Analyze(src)
	if err := checkResult(id, category, res); err != nil {
		return failed(id, category, err.Error())
	}
	return res
}

// checkResult verifies the scoring contract of a result
func checkResult(id MetricID, category Category, res MetricResult) error {
	if res.MetricID != id || res.Category != category {
		return fmt.Errorf("result identifies as %s/%s", res.MetricID, res.Category)
	}

	switch res.Status {
	case StatusOK, StatusDegraded:
		if res.Score == nil {
			return fmt.Errorf("%s result has no score", res.Status)
		}
		if s := *res.Score; math.IsNaN(s) || s < 0 || s > 100 {
			return fmt.Errorf("score %v is outside [0, 100]", s)
		}
	case StatusFailed:
		if res.Score != nil {
			return fmt.Errorf("failed result carries a score")
		}
		if len(res.Findings) == 0 {
			return fmt.Errorf("failed result has no findings")
		}
	default:
		return fmt.Errorf("unknown status %q", res.Status)
	}

	if len(res.Findings) == 0 {
		return fmt.Errorf("result has no findings")
	}
	return nil
}

// failed returns the failed result for a metric
func failed(id MetricID, category Category, reason string) MetricResult {
	res := newResult(id, category)
	res.Status = StatusFailed
	res.Findings = []Finding{{
		Polarity: Negative,
		Message:  fmt.Sprintf("Analysis of %s failed: %s", id, reason),
		Severity: SeverityMajor,
	}}
	res.Evidence["error"] = reason
	return res
}
