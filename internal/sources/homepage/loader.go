package homepage

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Loader reads Homepage configuration files from disk.
type Loader struct {
	filePath string
}

// NewLoader creates a new Homepage loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// LoadServices parses the file as services.yaml.
func (l *Loader) LoadServices() (ServicesConfig, error) {
	var config ServicesConfig
	if err := l.decode(&config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadBookmarks parses the file as bookmarks.yaml.
func (l *Loader) LoadBookmarks() (BookmarksConfig, error) {
	var config BookmarksConfig
	if err := l.decode(&config); err != nil {
		return nil, err
	}
	return config, nil
}

func (l *Loader) decode(out any) error {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", l.filePath, err)
	}

	// Strip Homepage template variables ({{HOMEPAGE_VAR_...}})
	data = stripTemplateVariables(data)

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", l.filePath, err)
	}
	return nil
}

// stripTemplateVariables removes Homepage template variables from YAML
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
