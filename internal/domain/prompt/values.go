package prompt

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadValues reads variable values from a YAML mapping of name to value.
// Non-string scalars are formatted with their YAML text.
func LoadValues(fs afero.Fs, path string) (map[string]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read values: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("prompt: parse values %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case string:
			values[k] = tv
		case nil:
			values[k] = ""
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("prompt: value for %q must be a scalar", k)
		default:
			values[k] = fmt.Sprint(tv)
		}
	}
	return values, nil
}
