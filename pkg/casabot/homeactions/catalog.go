package homeactions

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"casabot/pkg/casabot/actions"
)

// catalogFile is the YAML shape of an action catalog file.
type catalogFile struct {
	Actions []catalogAction `yaml:"actions"`
}

type catalogAction struct {
	ID            string                  `yaml:"id"`
	ExternalAlias string                  `yaml:"external_alias"`
	Description   string                  `yaml:"description"`
	Params        yaml.Node               `yaml:"params"`
	ParamsMap     map[string]catalogParam `yaml:"-"`
	Examples      []string                `yaml:"examples"`
}

type catalogParam struct {
	Required      bool                `yaml:"required"`
	AllowedValues []string            `yaml:"allowed_values"`
	Default       string              `yaml:"default"`
	Keywords      map[string][]string `yaml:"keywords"`
	Pattern       string              `yaml:"pattern"`
	PatternGroup  int                 `yaml:"pattern_group"`
	Description   string              `yaml:"description"`
}

// LoadCatalog reads extra webhook action definitions from a YAML file and
// registers them. Parameter order follows the order in the file.
func LoadCatalog(path string, reg *actions.Registry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading action catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing action catalog: %w", err)
	}

	for _, entry := range file.Actions {
		if entry.ID == "" {
			return fmt.Errorf("action catalog: entry without id")
		}
		def, err := entry.toDefinition()
		if err != nil {
			return fmt.Errorf("action catalog: %s: %w", entry.ID, err)
		}
		reg.Register(def)
	}
	return nil
}

// toDefinition converts a catalog entry, compiling patterns and keeping
// the file's parameter order.
func (entry catalogAction) toDefinition() (*actions.Definition, error) {
	def := &actions.Definition{
		ID:            entry.ID,
		ExternalAlias: entry.ExternalAlias,
		Kind:          actions.KindRemoteWebhook,
		Description:   entry.Description,
		Params:        make(map[string]actions.ParamSpec),
		Examples:      entry.Examples,
	}

	// Walk the params mapping node pairwise to preserve declaration order,
	// which plain map decoding would lose.
	if entry.Params.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(entry.Params.Content); i += 2 {
			name := entry.Params.Content[i].Value

			var p catalogParam
			if err := entry.Params.Content[i+1].Decode(&p); err != nil {
				return nil, fmt.Errorf("param %s: %w", name, err)
			}

			spec := actions.ParamSpec{
				Required:      p.Required,
				AllowedValues: p.AllowedValues,
				Default:       p.Default,
				Keywords:      p.Keywords,
				PatternGroup:  p.PatternGroup,
				Description:   p.Description,
			}
			if p.Pattern != "" {
				re, err := regexp.Compile(p.Pattern)
				if err != nil {
					return nil, fmt.Errorf("param %s: invalid pattern: %w", name, err)
				}
				spec.Pattern = re
			}

			def.Params[name] = spec
			def.ParamOrder = append(def.ParamOrder, name)
		}
	}
	return def, nil
}
