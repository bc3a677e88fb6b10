package notebook

// Kind identifies the type of a notebook cell
type Kind string

const (
	KindCode     Kind = "code"
	KindMarkdown Kind = "markdown"
)

// Notebook represents a decoded notebook document
type Notebook struct {
	Name   string `json:"name"`   // Base name of the notebook file
	Path   string `json:"path"`   // Source path (empty when decoded from a stream)
	Format int    `json:"format"` // nbformat major version
	Cells  []Cell `json:"cells"`  // Cells in document order

	digest []byte // raw document bytes, used for identity
}

// Cell represents a single code or markdown cell
type Cell struct {
	Index          int    `json:"index"`                     // Position in the original document
	Kind           Kind   `json:"kind"`                      // code or markdown
	Source         string `json:"source"`                    // Cell text with lines joined
	ExecutionCount *int   `json:"execution_count,omitempty"` // Execution counter for code cells
}

// New builds a notebook from cells, assigning indices in order
func New(name string, cells ...Cell) *Notebook {
	nb := &Notebook{Name: name, Format: 4}
	for i, c := range cells {
		c.Index = i
		nb.Cells = append(nb.Cells, c)
	}
	return nb
}

// Code returns a code cell with the given source
func Code(source string) Cell {
	return Cell{Kind: KindCode, Source: source}
}

// Markdown returns a markdown cell with the given source
func Markdown(source string) Cell {
	return Cell{Kind: KindMarkdown, Source: source}
}

// Identity returns the bytes that identify this notebook's content
func (nb *Notebook) Identity() []byte {
	if len(nb.digest) > 0 {
		return nb.digest
	}

	// Fall back to the cell contents for notebooks built in memory
	var b []byte
	for _, c := range nb.Cells {
		b = append(b, c.Kind...)
		b = append(b, 0)
		b = append(b, c.Source...)
		b = append(b, 0)
	}
	return b
}
