package analyzer

import "time"

// MetricID identifies one independently scored quality dimension
type MetricID string

const (
	MetricFormatting   MetricID = "code_formatting"
	MetricStructure    MetricID = "code_structure"
	MetricComments     MetricID = "code_comments"
	MetricConciseness  MetricID = "code_conciseness"
	MetricReusability  MetricID = "code_reusability"
	MetricTechniques   MetricID = "advanced_techniques"
	MetricDatasetJoin  MetricID = "dataset_join"
	MetricVisualTypes  MetricID = "visualization_types"
	MetricVisualFormat MetricID = "visualization_formatting"
)

// Category groups metrics into a top-level quality dimension
type Category string

const (
	CategoryBuilder  Category = "builder_mindset"
	CategoryBusiness Category = "business_intelligence"
)

// Categories lists every category in report order
var Categories = []Category{CategoryBuilder, CategoryBusiness}

// Status is the terminal state of one analyzer invocation
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded" // best-effort score from partially tokenized input
	StatusFailed   Status = "failed"   // no score
)

// Polarity tells whether a finding supports or lowers a score
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
)

// Severity grades a finding
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityMinor Severity = "minor"
	SeverityMajor Severity = "major"
)

// Level is the qualitative band a score falls into
type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelFair      Level = "fair"
	LevelPoor      Level = "poor"
	LevelCritical  Level = "critical"
)

// CategoryStatus marks whether a category score could be computed
type CategoryStatus string

const (
	CategoryAvailable   CategoryStatus = "available"
	CategoryUnavailable CategoryStatus = "unavailable"
)

// Report represents the complete analysis report of one notebook
type Report struct {
	NotebookID   string          `json:"notebook_id"`   // Deterministic identity derived from name and content
	Notebook     NotebookInfo    `json:"notebook"`      // Extractor metadata
	OverallScore *float64        `json:"overall_score"` // nil when no category is available
	OverallLevel Level           `json:"overall_level,omitempty"`
	Categories   []CategoryScore `json:"categories"`  // One per category, fixed order
	Metrics      []MetricResult  `json:"metrics"`     // Registry order
	Diagnostics  []Diagnostic    `json:"diagnostics"` // Integrated analysis results
	GeneratedAt  time.Time       `json:"generated_at"`
}

// NotebookInfo describes the analyzed notebook
type NotebookInfo struct {
	Name          string `json:"name"`
	Path          string `json:"path,omitempty"`
	Format        int    `json:"nbformat"`
	TotalCells    int    `json:"total_cells"`
	CodeCells     int    `json:"code_cells"`
	MarkdownCells int    `json:"markdown_cells"`
}

// MetricResult represents the outcome of a single analyzer
type MetricResult struct {
	MetricID MetricID               `json:"metric_id"`
	Category Category               `json:"category"`
	Score    *float64               `json:"score"`           // nil when Status is failed
	Level    Level                  `json:"level,omitempty"` // Set by the report assembler
	Status   Status                 `json:"status"`
	Findings []Finding              `json:"findings"`
	Evidence map[string]interface{} `json:"evidence"` // Raw measurements behind the score
}

// Finding is one human-readable observation backing a score
type Finding struct {
	Polarity Polarity `json:"polarity"`
	Message  string   `json:"message"`
	Cell     *int     `json:"cell,omitempty"` // Original cell index, if the finding is local
	Severity Severity `json:"severity"`
}

// CategoryScore represents the aggregated score of one category
type CategoryScore struct {
	Category     Category             `json:"category"`
	Score        *float64             `json:"score"` // nil when unavailable
	Status       CategoryStatus       `json:"status"`
	Level        Level                `json:"level,omitempty"`
	Weight       float64              `json:"weight"`       // Weight in the overall score
	Contributing []MetricID           `json:"contributing"` // Metrics that fed the score
	Weights      map[MetricID]float64 `json:"weights"`      // Weights used for contributing metrics
}

// Diagnostic represents a problem detected by combining several metrics
type Diagnostic struct {
	Type        string                 `json:"type"`         // "Analyzer Failure", "Weak Metric", etc.
	TargetName  string                 `json:"target_name"`  // Metric or category the diagnostic is about
	Message     string                 `json:"message"`      // Human-readable description
	Severity    string                 `json:"severity"`     // "Critical", "Warning"
	Evidence    map[string]interface{} `json:"evidence"`     // Metric values that support this diagnosis
	RelatedPath string                 `json:"related_path"` // Anchor of the detailed data (e.g., "#metric-code_comments")
}
