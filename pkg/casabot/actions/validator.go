package actions

import (
	"fmt"
	"strings"
)

// FieldProblem describes one missing or invalid parameter in a report.
type FieldProblem struct {
	Name          string
	Supplied      string
	AllowedValues []string
}

// ValidationReport is the result of checking a candidate parameter set
// against an action's schema. It is consumed immediately by the dispatcher
// or formatted for the user; it is never persisted.
type ValidationReport struct {
	Valid   bool
	Missing []FieldProblem
	Invalid []FieldProblem
}

// Validate checks params against the schema of actionID. It is a pure
// function: no I/O, never panics. An unknown actionID yields a trivially
// valid report; callers resolve the action through the registry first.
func (e *Extractor) Validate(actionID string, params map[string]string) ValidationReport {
	return Validate(e.registry, actionID, params)
}

// Validate checks params against the schema of actionID in reg.
func Validate(reg *Registry, actionID string, params map[string]string) ValidationReport {
	report := ValidationReport{Valid: true}
	def, ok := reg.Find(actionID)
	if !ok {
		return report
	}

	for _, name := range def.ParamOrder {
		spec := def.Params[name]
		value, present := params[name]
		if !present || value == "" {
			if spec.Required {
				report.Missing = append(report.Missing, FieldProblem{
					Name:          name,
					AllowedValues: spec.AllowedValues,
				})
			}
			continue
		}
		if !spec.Allows(value) {
			report.Invalid = append(report.Invalid, FieldProblem{
				Name:          name,
				Supplied:      value,
				AllowedValues: spec.AllowedValues,
			})
		}
	}

	report.Valid = len(report.Missing) == 0 && len(report.Invalid) == 0
	return report
}

// UserMessage formats the report as an itemized, human-readable error for
// the chat reply. Returns "" when the report is valid.
func (r ValidationReport) UserMessage() string {
	if r.Valid {
		return ""
	}
	var b strings.Builder
	b.WriteString("I can't run that yet:\n")
	for _, p := range r.Missing {
		b.WriteString(fmt.Sprintf("• missing %q", p.Name))
		if len(p.AllowedValues) > 0 {
			b.WriteString(" (one of: " + strings.Join(p.AllowedValues, ", ") + ")")
		}
		b.WriteString("\n")
	}
	for _, p := range r.Invalid {
		b.WriteString(fmt.Sprintf("• %q can't be %q", p.Name, p.Supplied))
		if len(p.AllowedValues) > 0 {
			b.WriteString(" (one of: " + strings.Join(p.AllowedValues, ", ") + ")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
