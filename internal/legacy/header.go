package legacy

import (
	"regexp"
	"strings"
)

var (
	camelHead = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	camelTail = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// SnakeCase converts CamelCase and PascalCase headers to snake_case.
func SnakeCase(name string) string {
	s := camelHead.ReplaceAllString(name, "${1}_${2}")
	return strings.ToLower(camelTail.ReplaceAllString(s, "${1}_${2}"))
}

// CleanHeader strips whitespace and byte order marks.
func CleanHeader(h string) string {
	return strings.TrimSpace(strings.ReplaceAll(h, "\ufeff", ""))
}

// MapHeaders returns, per CSV column index, the table column it feeds. Resolution order
// is explicit override, then snake_case inference, then plain lowercase. Unmatched
// headers are left out.
func MapHeaders(headers []string, spec FileSpec, overrides map[string]string) map[int]Column {
	out := make(map[int]Column)
	used := make(map[string]bool)
	for i, raw := range headers {
		h := CleanHeader(raw)
		if h == "" {
			continue
		}
		candidates := []string{SnakeCase(h), strings.ToLower(h)}
		if target, ok := overrides[h]; ok {
			candidates = append([]string{target}, candidates...)
		}
		for _, name := range candidates {
			if c, ok := spec.column(name); ok && !used[name] {
				out[i] = c
				used[name] = true
				break
			}
		}
	}
	return out
}
