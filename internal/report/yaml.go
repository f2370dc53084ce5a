package report

import (
	"fmt"

	"github.com/KaramelBytes/airfit-cli/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// YAML encodes res. Infinite VIF values are written as .inf.
func YAML(res *pipeline.Result) ([]byte, error) {
	b, err := yaml.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}

// IsMarkdown reports whether format names the Markdown report.
func IsMarkdown(format string) bool {
	switch format {
	case "", "markdown", "md":
		return true
	}
	return false
}

// Render returns res in the named format: "markdown" (or "md") or "yaml".
// The YAML form already carries the per-fold CV errors.
func Render(res *pipeline.Result, format string) ([]byte, error) {
	switch {
	case IsMarkdown(format):
		return []byte(Markdown(res)), nil
	case format == "yaml" || format == "yml":
		return YAML(res)
	}
	return nil, fmt.Errorf("unsupported format: %s (use markdown or yaml)", format)
}
