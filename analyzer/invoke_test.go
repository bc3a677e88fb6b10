package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

// stubAnalyzer returns whatever its analyze func produces
type stubAnalyzer struct {
	id       MetricID
	category Category
	analyze  func(a *stubAnalyzer) MetricResult
}

func (s *stubAnalyzer) ID() MetricID       { return s.id }
func (s *stubAnalyzer) Category() Category { return s.category }
func (s *stubAnalyzer) Analyze(*notebook.Sources) MetricResult {
	return s.analyze(s)
}

func stubWithScore(id MetricID, category Category, score float64) *stubAnalyzer {
	return &stubAnalyzer{id: id, category: category, analyze: func(a *stubAnalyzer) MetricResult {
		res := newResult(a.id, a.category)
		res.Score = scoreOf(score)
		res.Findings = []Finding{{Polarity: Positive, Message: "stub", Severity: SeverityInfo}}
		return res
	}}
}

func panicking(id MetricID, category Category) *stubAnalyzer {
	return &stubAnalyzer{id: id, category: category, analyze: func(*stubAnalyzer) MetricResult {
		panic("tokenizer exploded")
	}}
}

// panickingIdentity panics as soon as its identity is asked for
type panickingIdentity struct{ stubAnalyzer }

func (p *panickingIdentity) ID() MetricID { panic("no identity") }

func TestInvoke_IdentityPanicIsIsolated(t *testing.T) {
	a := &panickingIdentity{stubAnalyzer: *stubWithScore(MetricFormatting, CategoryBuilder, 42)}

	var res MetricResult
	require.NotPanics(t, func() { res = Invoke(a, nil) })
	assert.Equal(t, StatusFailed, res.Status)
	assert.Nil(t, res.Score)
	assert.Equal(t, "analyzer panicked: no identity", res.Evidence["error"])
}

func TestInvoke_Valid(t *testing.T) {
	res := Invoke(stubWithScore(MetricFormatting, CategoryBuilder, 42), nil)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 42.0, *res.Score)
}

func TestInvoke_BrokenResultsFail(t *testing.T) {
	tests := []struct {
		name   string
		stub   *stubAnalyzer
		reason string
	}{
		{"panic", panicking(MetricFormatting, CategoryBuilder), "analyzer panicked: tokenizer exploded"},
		{"nan", stubWithScore(MetricFormatting, CategoryBuilder, math.NaN()), "outside [0, 100]"},
		{"above range", stubWithScore(MetricFormatting, CategoryBuilder, 100.5), "outside [0, 100]"},
		{"below range", stubWithScore(MetricFormatting, CategoryBuilder, -1), "outside [0, 100]"},
		{"id mismatch", &stubAnalyzer{id: MetricFormatting, category: CategoryBuilder, analyze: func(*stubAnalyzer) MetricResult {
			res := newResult(MetricComments, CategoryBuilder)
			res.Score = scoreOf(10)
			res.Findings = []Finding{{Polarity: Positive, Message: "x", Severity: SeverityInfo}}
			return res
		}}, "identifies as code_comments"},
		{"no findings", &stubAnalyzer{id: MetricFormatting, category: CategoryBuilder, analyze: func(a *stubAnalyzer) MetricResult {
			res := newResult(a.id, a.category)
			res.Score = scoreOf(10)
			return res
		}}, "no findings"},
		{"missing score", &stubAnalyzer{id: MetricFormatting, category: CategoryBuilder, analyze: func(a *stubAnalyzer) MetricResult {
			res := newResult(a.id, a.category)
			res.Findings = []Finding{{Polarity: Positive, Message: "x", Severity: SeverityInfo}}
			return res
		}}, "has no score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Invoke(tt.stub, nil)
			assert.Equal(t, StatusFailed, res.Status)
			assert.Nil(t, res.Score)
			assert.Equal(t, MetricFormatting, res.MetricID)
			require.Len(t, res.Findings, 1)
			assert.Equal(t, Negative, res.Findings[0].Polarity)
			assert.Equal(t, SeverityMajor, res.Findings[0].Severity)
			assert.Contains(t, res.Evidence["error"], tt.reason)
		})
	}
}

func TestInvoke_EveryAnalyzerHonorsContract(t *testing.T) {
	src := sourcesOf(t,
		notebook.Markdown("# Sales"),
		notebook.Code("import pandas as pd\nimport matplotlib.pyplot as plt\n"),
		notebook.Code("df = pd.read_csv('sales.csv')\nmonthly = df.groupby('month').sum()\n"),
		notebook.Code("plt.bar(monthly.index, monthly['total'])\nplt.title('Monthly sales')\n"),
	)
	for _, a := range analyzers(DefaultParams()) {
		res := Invoke(a, src)
		assert.NoError(t, checkResult(a.ID(), a.Category(), res), a.ID())
	}
}
