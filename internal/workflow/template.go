package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

var refPattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+(?:\.[a-zA-Z0-9_]+)*)\}`)

// resolveParams substitutes ${register.field} references in step parameters
// with values captured by earlier steps. A parameter that is exactly one
// reference keeps the referenced value's type; references embedded in a
// longer string are stringified.
func resolveParams(with map[string]any, vars map[string]any) (map[string]any, error) {
	if len(with) == 0 {
		return with, nil
	}

	out := make(map[string]any, len(with))
	for key, value := range with {
		resolved, err := resolveValue(value, vars)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		out[key] = resolved
	}
	return out, nil
}

func resolveValue(value any, vars map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return resolveString(v, vars)
	case map[string]any:
		return resolveParams(v, vars)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := resolveValue(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func resolveString(s string, vars map[string]any) (any, error) {
	// Whole-string reference: preserve the underlying type.
	if m := refPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		value, found := lookupRef(m[1], vars)
		if !found {
			return nil, fmt.Errorf("unresolved reference %q", s)
		}
		return value, nil
	}

	var missing string
	result := refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		path := refPattern.FindStringSubmatch(ref)[1]
		value, found := lookupRef(path, vars)
		if !found {
			missing = ref
			return ref
		}
		return fmt.Sprint(value)
	})
	if missing != "" {
		return nil, fmt.Errorf("unresolved reference %q", missing)
	}
	return result, nil
}

// lookupRef resolves "register.field.subfield" against captured step results.
func lookupRef(path string, vars map[string]any) (any, bool) {
	name, rest, hasRest := strings.Cut(path, ".")
	root, ok := vars[name]
	if !ok {
		return nil, false
	}
	if !hasRest {
		return root, true
	}
	return lookup(root, rest)
}

// lookup walks a dot path through nested maps produced by genericize.
func lookup(v any, path string) (any, bool) {
	current := v
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
