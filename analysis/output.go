package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/clarity/horosafe"
)

// WriteReport writes r as indented JSON under dir and returns the file path.
// The file is named after the document and the report ID; it is written to
// a temporary file first and renamed into place.
func WriteReport(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("analysis: output dir: %w", err)
	}
	stem := strings.TrimSuffix(horosafe.SafeFileName(r.Document), filepath.Ext(r.Document))
	stem = strings.ReplaceAll(stem, "..", "_")
	if stem == "" {
		stem = "document"
	}
	path, err := horosafe.SafePath(dir, horosafe.SafeFileName(stem+"_"+r.ID+".json"))
	if err != nil {
		return "", fmt.Errorf("analysis: output path: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("analysis: encode report: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("analysis: write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("analysis: write report: %w", err)
	}
	return path, nil
}
