package notebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrMalformed is returned when a document is missing required structure
	ErrMalformed = errors.New("malformed notebook")

	// ErrEmptyNotebook signals a notebook without cells. It is not fatal.
	ErrEmptyNotebook = errors.New("notebook has no cells")
)

// rawNotebook mirrors the parts of the nbformat schema the analyzer reads
type rawNotebook struct {
	Cells         *[]rawCell `json:"cells"`
	NBFormat      int        `json:"nbformat"`
	NBFormatMinor int        `json:"nbformat_minor"`
}

type rawCell struct {
	CellType       *string         `json:"cell_type"`
	Source         json.RawMessage `json:"source"`
	ExecutionCount *int            `json:"execution_count"`
}

// Load reads and decodes the notebook at path
func Load(path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read notebook: %w", err)
	}

	nb, err := decodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	nb.Path = path
	nb.Name = filepath.Base(path)
	return nb, nil
}

// Decode decodes a notebook document from r
func Decode(r io.Reader) (*Notebook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read notebook: %w", err)
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (*Notebook, error) {
	var raw rawNotebook
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformed, err)
	}

	// nbformat 3 keeps cells under worksheets, which is not supported
	if raw.Cells == nil {
		return nil, fmt.Errorf("%w: missing \"cells\" array", ErrMalformed)
	}

	nb := &Notebook{Format: raw.NBFormat, digest: data}
	for i, rc := range *raw.Cells {
		if rc.CellType == nil {
			return nil, fmt.Errorf("%w: cells[%d]: missing \"cell_type\"", ErrMalformed, i)
		}

		kind := Kind(*rc.CellType)
		switch kind {
		case KindCode, KindMarkdown:
		case "raw":
			// Raw cells carry neither code nor narrative
			continue
		default:
			return nil, fmt.Errorf("%w: cells[%d]: unknown cell_type %q", ErrMalformed, i, *rc.CellType)
		}

		source, err := decodeSource(rc.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: cells[%d]: %v", ErrMalformed, i, err)
		}

		nb.Cells = append(nb.Cells, Cell{
			Index:          i,
			Kind:           kind,
			Source:         source,
			ExecutionCount: rc.ExecutionCount,
		})
	}

	return nb, nil
}

// decodeSource accepts both a single string and a list of line strings
func decodeSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("missing \"source\"")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", errors.New("\"source\" must be a string or a list of strings")
	}
	return strings.Join(lines, ""), nil
}
