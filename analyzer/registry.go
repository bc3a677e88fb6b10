package analyzer

import (
	"fmt"
	"sort"
	"strings"
)

// Weights holds the weight tables of metrics and categories
type Weights struct {
	Categories map[Category]float64 `mapstructure:"categories" yaml:"categories"`
	Metrics    map[MetricID]float64 `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultWeights returns the default weight tables
func DefaultWeights() Weights {
	return Weights{
		Categories: map[Category]float64{
			CategoryBuilder:  0.5,
			CategoryBusiness: 0.5,
		},
		Metrics: map[MetricID]float64{
			MetricFormatting:   0.15,
			MetricComments:     0.15,
			MetricConciseness:  0.15,
			MetricStructure:    0.15,
			MetricDatasetJoin:  0.15,
			MetricReusability:  0.15,
			MetricTechniques:   0.10,
			MetricVisualFormat: 0.5,
			MetricVisualTypes:  0.5,
		},
	}
}

// Entry binds an analyzer to its weight within its category
type Entry struct {
	Analyzer Analyzer
	Weight   float64
}

// Registry is the closed, ordered table of metrics
type Registry struct {
	entries         []Entry
	categoryWeights map[Category]float64
}

// analyzers returns the full analyzer set in report order
func analyzers(p Params) []Analyzer {
	return []Analyzer{
		&formattingAnalyzer{params: p},
		&structureAnalyzer{params: p},
		&commentsAnalyzer{params: p},
		&concisenessAnalyzer{params: p},
		&reusabilityAnalyzer{params: p},
		&techniquesAnalyzer{params: p},
		&joinAnalyzer{params: p},
		&visTypesAnalyzer{params: p},
		&visFormatAnalyzer{params: p},
	}
}

// MetricIDs lists every metric in registry order
func MetricIDs() []MetricID {
	var ids []MetricID
	for _, a := range analyzers(DefaultParams()) {
		ids = append(ids, a.ID())
	}
	return ids
}

// NewRegistry builds the registry from analyzer parameters and weight tables.
// Missing weights fall back to the defaults; unknown ids and non-positive weights are rejected.
func NewRegistry(params Params, weights Weights) (*Registry, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	defaults := DefaultWeights()

	set := analyzers(params)
	known := make(map[MetricID]bool, len(set))
	for _, a := range set {
		known[a.ID()] = true
	}
	for _, id := range sortedKeys(weights.Metrics) {
		if !known[id] {
			return nil, fmt.Errorf("unknown metric %q in weights", id)
		}
	}
	for _, c := range sortedKeys(weights.Categories) {
		if c != CategoryBuilder && c != CategoryBusiness {
			return nil, fmt.Errorf("unknown category %q in weights", c)
		}
	}

	r := &Registry{categoryWeights: make(map[Category]float64, len(Categories))}
	for _, a := range set {
		w, ok := weights.Metrics[a.ID()]
		if !ok {
			w = defaults.Metrics[a.ID()]
		}
		if w <= 0 {
			return nil, fmt.Errorf("weight of metric %s must be positive, got %v", a.ID(), w)
		}
		r.entries = append(r.entries, Entry{Analyzer: a, Weight: w})
	}
	for _, c := range Categories {
		w, ok := weights.Categories[c]
		if !ok {
			w = defaults.Categories[c]
		}
		if w <= 0 {
			return nil, fmt.Errorf("weight of category %s must be positive, got %v", c, w)
		}
		r.categoryWeights[c] = w
	}
	return r, nil
}

// DefaultRegistry returns the registry with default parameters and weights
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultParams(), DefaultWeights())
	if err != nil {
		panic(err)
	}
	return r
}

// Entries returns the registry entries in order
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Weight returns the weight of a metric, or 0 if it is not registered
func (r *Registry) Weight(id MetricID) float64 {
	for _, e := range r.entries {
		if e.Analyzer.ID() == id {
			return e.Weight
		}
	}
	return 0
}

// CategoryOf returns the category of a registered metric
func (r *Registry) CategoryOf(id MetricID) (Category, bool) {
	for _, e := range r.entries {
		if e.Analyzer.ID() == id {
			return e.Analyzer.Category(), true
		}
	}
	return "", false
}

// CategoryWeight returns the weight of a category in the overall score
func (r *Registry) CategoryWeight(c Category) float64 {
	return r.categoryWeights[c]
}

// validate checks the analyzer parameters
func (p Params) validate() error {
	var problems []string
	if p.MaxLineLength <= 0 {
		problems = append(problems, "max_line_length must be positive")
	}
	if p.FormattingK <= 0 {
		problems = append(problems, "formatting_k must be positive")
	}
	if p.TechniqueIncrement <= 0 {
		problems = append(problems, "technique_increment must be positive")
	}
	if p.MonolithLines <= 0 {
		problems = append(problems, "monolith_lines must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid analyzer parameters: %s", strings.Join(problems, "; "))
	}
	return nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
