package runstore

import (
	"fmt"
	"strings"

	"ytgrab/internal/model"
)

// WriteReport stores the outcome of one attempt as indented JSON. The write
// is atomic, so a reader never sees a half-written report.
func WriteReport(path string, outcome model.Outcome) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("report path is required")
	}
	return WriteJSON(path, outcome)
}

func ReadReport(path string) (model.Outcome, error) {
	var out model.Outcome
	if err := ReadJSON(path, &out); err != nil {
		return model.Outcome{}, err
	}
	return out, nil
}
