// Package actions holds the catalog of invocable actions (local chat
// commands and remote webhook-backed services) together with their
// declarative parameter schemas, keyword-based parameter extraction, and
// schema validation.
package actions

import "regexp"

// Kind identifies how an action is executed.
type Kind string

const (
	// KindLocalCommand is a command handled inside the bot process.
	KindLocalCommand Kind = "local_command"

	// KindRemoteWebhook is an action executed by POSTing to a remote
	// Home-Assistant-style webhook.
	KindRemoteWebhook Kind = "remote_webhook"
)

// ParamSpec is the declarative contract for one parameter of an action.
type ParamSpec struct {
	// Required marks the parameter as mandatory for dispatch.
	Required bool `yaml:"required"`

	// AllowedValues constrains the parameter to a closed set. Empty means
	// unconstrained. Order matters: extraction ties break on declared order.
	AllowedValues []string `yaml:"allowed_values"`

	// Default is applied when extraction finds nothing. Empty means no default.
	Default string `yaml:"default"`

	// Keywords maps each allowed value to the synonyms that select it from
	// free text (case-insensitive substring match).
	Keywords map[string][]string `yaml:"keywords"`

	// Pattern extracts a free-form value when no keyword matches.
	Pattern *regexp.Regexp `yaml:"-"`

	// PatternGroup is the capture group index holding the value (default 1).
	PatternGroup int `yaml:"pattern_group"`

	// Description documents the parameter for the model prompt and for
	// validation error messages.
	Description string `yaml:"description"`
}

// Allows reports whether v is permitted by the spec. An empty AllowedValues
// set permits anything.
func (s ParamSpec) Allows(v string) bool {
	if len(s.AllowedValues) == 0 {
		return true
	}
	for _, a := range s.AllowedValues {
		if a == v {
			return true
		}
	}
	return false
}

// Definition describes one invocable capability.
type Definition struct {
	// ID is the unique, stable action identifier (e.g. "area_control").
	ID string `yaml:"id"`

	// ExternalAlias is an alternate identifier used by external callers
	// (the webhook path suffix). Defaults to ID when empty.
	ExternalAlias string `yaml:"external_alias"`

	// Kind selects local or remote execution.
	Kind Kind `yaml:"kind"`

	// Description is shown to the model in the action catalog prompt.
	Description string `yaml:"description"`

	// Params is the parameter schema, keyed by parameter name.
	Params map[string]ParamSpec `yaml:"params"`

	// ParamOrder preserves the declared parameter order for deterministic
	// prompts and validation reports. Populated at registration when empty.
	ParamOrder []string `yaml:"param_order"`

	// Examples are sample utterances included in the function prompt.
	Examples []string `yaml:"examples"`
}

// Alias returns the effective external identifier.
func (d *Definition) Alias() string {
	if d.ExternalAlias != "" {
		return d.ExternalAlias
	}
	return d.ID
}
