package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/analyzer"
)

// renderJSON writes a single report as an object and several as an array
func renderJSON(w io.Writer, reports []*analyzer.Report) error {
	// Create JSON encoder with indentation for readability
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}

	// Encode report to JSON
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
