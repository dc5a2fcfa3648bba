package actions

import (
	"sort"
	"strings"
)

// Extractor fills action parameters from free text using the keyword,
// pattern, and default rules declared in each ParamSpec. It never invents
// values outside the rule set and never fails on missing data: absent
// parameters are simply omitted and resolved later by Validate.
type Extractor struct {
	registry *Registry
}

// NewExtractor creates an extractor bound to an action registry.
func NewExtractor(registry *Registry) *Extractor {
	return &Extractor{registry: registry}
}

// Extract returns the parameters for actionID that can be derived from text,
// layered on top of existing. Keys already present in existing are never
// overwritten, so the model's own structured output survives a second
// text-based pass. Calling Extract twice with the same inputs yields the
// same result.
func (e *Extractor) Extract(text, actionID string, existing map[string]string) map[string]string {
	out := make(map[string]string, len(existing))
	for k, v := range existing {
		out[k] = v
	}

	def, ok := e.registry.Find(actionID)
	if !ok {
		return out
	}

	lower := strings.ToLower(text)
	for _, name := range def.ParamOrder {
		if _, done := out[name]; done {
			continue
		}
		spec := def.Params[name]

		if v, ok := matchKeyword(lower, spec); ok {
			out[name] = v
			continue
		}
		if v, ok := matchPattern(text, spec); ok {
			out[name] = v
			continue
		}
		if spec.Default != "" {
			out[name] = spec.Default
		}
	}
	return out
}

// matchKeyword scans the declared values in schema order and returns the
// first value whose keywords appear in the text. Only the declared
// keywords are consulted; the bare value is used just for values that
// declare none, so a curated keyword list fully controls what matches.
// Declared order is the tie-break, so extraction stays deterministic when
// several values could match.
func matchKeyword(lower string, spec ParamSpec) (string, bool) {
	for _, value := range keywordOrder(spec) {
		candidates := spec.Keywords[value]
		if len(candidates) == 0 {
			candidates = []string{value}
		}
		for _, kw := range candidates {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				return value, true
			}
		}
	}
	return "", false
}

// keywordOrder returns candidate values in a stable order: the declared
// allowed-value order first, then any keyword-only values sorted by name.
func keywordOrder(spec ParamSpec) []string {
	if len(spec.AllowedValues) > 0 {
		return spec.AllowedValues
	}
	values := make([]string, 0, len(spec.Keywords))
	for v := range spec.Keywords {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// matchPattern applies the spec's regex to the original (case-preserving)
// text and returns the configured capture group, trimmed.
func matchPattern(text string, spec ParamSpec) (string, bool) {
	if spec.Pattern == nil {
		return "", false
	}
	m := spec.Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	group := spec.PatternGroup
	if group <= 0 {
		group = 1
	}
	if group >= len(m) {
		return "", false
	}
	v := strings.TrimSpace(m[group])
	if v == "" {
		return "", false
	}
	return v, true
}
