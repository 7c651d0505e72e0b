package portal

import (
	"errors"
	"fmt"
	"regexp"
)

var ErrUnknownParam = errors.New("template references an unknown param")

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\}`)

// Expand replaces every `{name}` in `template` with values[name].
func Expand(template string, values map[string]string) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %v in %q", ErrUnknownParam, missing, template)
	}
	return out, nil
}

func expandAll(templates map[string]string, values map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(templates))
	for key, template := range templates {
		value, err := Expand(template, values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = value
	}
	return out, nil
}
