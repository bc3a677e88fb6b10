package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/notebook"
)

const (
	invocationWeight     = 70.0
	importReuseWeight    = 30.0
	importsOnlyBase      = 30.0
	noReuseSignalScore   = 40.0
	duplicateImportCost  = 5.0
	duplicateImportLimit = 20.0
)

// importBinding is one name bound by an import statement
type importBinding struct {
	Name   string // Name bound in the namespace
	Source string // Fully qualified origin, e.g. "pandas" or "os.path.join"
	Cell   int
	Line   int
}

type reusabilityAnalyzer struct {
	params Params
}

func (a *reusabilityAnalyzer) ID() MetricID       { return MetricReusability }
func (a *reusabilityAnalyzer) Category() Category { return CategoryBuilder }

// Analyze scores how often definitions are invoked and how widely imports are reused:
// 70*invocation + 30*importReuse, minus 5 per duplicated import
func (a *reusabilityAnalyzer) Analyze(src *notebook.Sources) MetricResult {
	sc, base := prepare(a, src, a.params)
	if base != nil {
		return *base
	}
	res := newResult(a.ID(), a.Category())
	stmts := sc.statements()

	// Calculate invocation ratio
	defs := findDefinitions(sc)
	var unused []string
	for _, d := range defs {
		if !referencedOutside(d, stmts) {
			unused = append(unused, d.Name)
			res.Findings = append(res.Findings, Finding{
				Polarity: Negative,
				Message:  fmt.Sprintf("%s '%s' is defined but never used", strings.ToUpper(d.Kind[:1])+d.Kind[1:], d.Name),
				Cell:     cellRef(d.Cell),
				Severity: SeverityMinor,
			})
		}
	}
	invocation := ratio(len(defs)-len(unused), len(defs))

	// Calculate import reuse across cells
	bindings := collectImports(stmts)
	seen := make(map[string]bool)
	var unique []importBinding
	duplicates := 0
	for _, b := range bindings {
		id := b.Name + "=" + b.Source
		if seen[id] {
			duplicates++
			res.Findings = append(res.Findings, Finding{
				Polarity: Negative,
				Message:  fmt.Sprintf("'%s' is imported more than once", b.Source),
				Cell:     cellRef(b.Cell),
				Severity: SeverityInfo,
			})
			continue
		}
		seen[id] = true
		unique = append(unique, b)
	}

	reused := 0
	for _, b := range unique {
		if usedInOtherCell(b, stmts) {
			reused++
		}
	}
	importReuse := ratio(reused, len(unique))

	var score float64
	switch {
	case len(defs) > 0 && len(unique) > 0:
		score = invocationWeight*invocation + importReuseWeight*importReuse
	case len(defs) > 0:
		score = 100 * invocation
	case len(unique) > 0:
		score = importsOnlyBase + importReuseWeight*importReuse
	default:
		score = noReuseSignalScore
	}
	score -= clamp(duplicateImportCost*float64(duplicates), 0, duplicateImportLimit)

	if len(defs) == 0 {
		res.Findings = append(res.Findings, Finding{
			Polarity: Negative,
			Message:  "No reusable functions or classes are defined",
			Severity: SeverityMinor,
		})
	} else if len(unused) == 0 {
		res.Findings = append(res.Findings, Finding{
			Polarity: Positive,
			Message:  fmt.Sprintf("All %d definitions are used", len(defs)),
			Severity: SeverityInfo,
		})
	}

	sort.Strings(unused)
	res.Evidence["definitions"] = len(defs)
	res.Evidence["unused_definitions"] = unused
	res.Evidence["invocation_ratio"] = round2(invocation)
	res.Evidence["imported_names"] = len(unique)
	res.Evidence["reused_imports"] = reused
	res.Evidence["import_reuse_ratio"] = round2(importReuse)
	res.Evidence["duplicate_imports"] = duplicates

	summary := fmt.Sprintf("%d of %d definitions are used and %d of %d imported names are reused across cells",
		len(defs)-len(unused), len(defs), reused, len(unique))
	return finish(res, score, summary, sc)
}

// identifierPattern matches name as a whole identifier
func identifierPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^\w.])` + regexp.QuoteMeta(name) + `\b`)
}

// attributeCallPattern matches name called as an attribute, e.g. obj.name(
func attributeCallPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\.` + regexp.QuoteMeta(name) + `\s*\(`)
}

// referencedOutside reports whether a definition's name is used outside its own header and body.
// Nested definitions are also used when called through an attribute.
func referencedOutside(d definition, stmts []statement) bool {
	pattern := identifierPattern(d.Name)
	var method *regexp.Regexp
	if d.Nested {
		method = attributeCallPattern(d.Name)
	}
	end := d.Line + d.Lines - 1
	for _, s := range stmts {
		if s.Cell == d.Cell && s.Line >= d.Line && s.Line <= end {
			continue
		}
		if name, _, ok := parseDefinition(s.Masked); ok && name == d.Name {
			continue
		}
		if pattern.MatchString(s.Masked) || (method != nil && method.MatchString(s.Masked)) {
			return true
		}
	}
	return false
}

// usedInOtherCell reports whether an imported name is used in a cell other than the importing one
func usedInOtherCell(b importBinding, stmts []statement) bool {
	pattern := identifierPattern(b.Name)
	for _, s := range stmts {
		if s.Cell == b.Cell || isImport(s.Masked) {
			continue
		}
		if pattern.MatchString(s.Masked) {
			return true
		}
	}
	return false
}

func isImport(masked string) bool {
	t := strings.TrimSpace(masked)
	return strings.HasPrefix(t, "import ") || strings.HasPrefix(t, "from ")
}

// collectImports returns every name bound by import statements in program order
func collectImports(stmts []statement) []importBinding {
	var out []importBinding
	for _, s := range stmts {
		t := strings.TrimSpace(s.Masked)
		switch {
		case strings.HasPrefix(t, "import "):
			for _, part := range strings.Split(strings.TrimPrefix(t, "import "), ",") {
				module, alias := splitAlias(part)
				if module == "" {
					continue
				}
				name := alias
				if name == "" {
					name = strings.SplitN(module, ".", 2)[0]
				}
				out = append(out, importBinding{Name: name, Source: module, Cell: s.Cell, Line: s.Line})
			}
		case strings.HasPrefix(t, "from "):
			rest := strings.TrimPrefix(t, "from ")
			idx := strings.Index(rest, " import ")
			if idx < 0 {
				continue
			}
			module := strings.TrimSpace(rest[:idx])
			names := strings.Trim(strings.TrimSpace(rest[idx+len(" import "):]), "()")
			for _, part := range strings.Split(names, ",") {
				name, alias := splitAlias(part)
				if name == "" || name == "*" {
					continue
				}
				bound := name
				if alias != "" {
					bound = alias
				}
				out = append(out, importBinding{Name: bound, Source: module + "." + name, Cell: s.Cell, Line: s.Line})
			}
		}
	}
	return out
}

// splitAlias splits "name as alias"
func splitAlias(part string) (name, alias string) {
	fields := strings.Fields(strings.TrimSpace(part))
	switch {
	case len(fields) == 0:
		return "", ""
	case len(fields) >= 3 && fields[1] == "as":
		return fields[0], fields[2]
	default:
		return fields[0], ""
	}
}
