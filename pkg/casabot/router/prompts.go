package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"casabot/pkg/casabot/actions"
	"casabot/pkg/casabot/commands"
	"casabot/pkg/casabot/llm"
)

const chatSystemPrompt = `You are Casa, a friendly home assistant reachable over chat.
Answer conversationally and concisely. You are talking over a messaging app,
so keep replies short and avoid markdown tables.`

// classifySystemPrompt asks for a bare bucket token so parsing stays
// trivial even on small models.
func classifySystemPrompt(reg *actions.Registry, cmds *commands.Registry) string {
	var b strings.Builder
	b.WriteString(`Classify the user's message into exactly one bucket:
CHAT    - small talk, questions, anything conversational
COMMAND - the user wants one of the local bot commands run
WEBHOOK - the user wants a smart-home action performed

Reply with the bucket name and a confidence between 0 and 1, for example:
WEBHOOK 0.9

Do not add anything else.

`)

	if cmds != nil {
		b.WriteString("Local commands:\n")
		for _, cmd := range cmds.List() {
			fmt.Fprintf(&b, "- %s: %s\n", cmd.Usage, cmd.Description)
		}
		b.WriteString("\n")
	}

	webhooks := reg.Webhooks()
	if len(webhooks) > 0 {
		b.WriteString("Smart-home actions:\n")
		for _, def := range webhooks {
			fmt.Fprintf(&b, "- %s: %s\n", def.ID, def.Description)
		}
	}
	return b.String()
}

// functionSystemPrompt enumerates the full catalog with parameter schemas
// so the model can fill arguments directly.
func functionSystemPrompt(reg *actions.Registry, cmds *commands.Registry) string {
	var b strings.Builder
	b.WriteString(`You are Casa, a home assistant. The user asked for something actionable.
Pick the single matching capability and call it. If nothing matches, answer
in plain text instead. Never invent capability names.

`)

	if cmds != nil {
		b.WriteString("Local commands (invoke via " + llm.FunctionRunCommand + "):\n")
		for _, cmd := range cmds.List() {
			fmt.Fprintf(&b, "- %s: %s\n", cmd.Usage, cmd.Description)
		}
		b.WriteString("\n")
	}

	for _, def := range reg.Webhooks() {
		fmt.Fprintf(&b, "Action %s: %s\n", def.ID, def.Description)
		for _, name := range def.ParamOrder {
			spec := def.Params[name]
			line := "  - " + name
			if spec.Required {
				line += " (required)"
			}
			if len(spec.AllowedValues) > 0 {
				line += " one of: " + strings.Join(spec.AllowedValues, ", ")
			}
			if spec.Description != "" {
				line += ". " + spec.Description
			}
			b.WriteString(line + "\n")
		}
		for _, ex := range def.Examples {
			fmt.Fprintf(&b, "  e.g. %q\n", ex)
		}
	}
	return b.String()
}

// functionDefs builds the tool list for the model: one run_command entry
// covering all local commands plus one entry per webhook action.
func functionDefs(reg *actions.Registry, cmds *commands.Registry) []llm.FunctionDefinition {
	var defs []llm.FunctionDefinition

	if cmds != nil {
		names := make([]string, 0)
		for _, cmd := range cmds.List() {
			names = append(names, cmd.Name)
		}
		schema, _ := json.Marshal(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"enum":        names,
					"description": "Name of the local command to run",
				},
				"args": map[string]any{
					"type":        "string",
					"description": "Argument text passed to the command",
				},
			},
			"required": []string{"command"},
		})
		defs = append(defs, llm.FunctionDefinition{
			Name:        llm.FunctionRunCommand,
			Description: "Run one of the bot's local commands",
			Parameters:  schema,
		})
	}

	for _, def := range reg.Webhooks() {
		props := make(map[string]any, len(def.Params))
		var required []string
		for _, name := range def.ParamOrder {
			spec := def.Params[name]
			p := map[string]any{"type": "string"}
			if len(spec.AllowedValues) > 0 {
				p["enum"] = spec.AllowedValues
			}
			if spec.Description != "" {
				p["description"] = spec.Description
			}
			props[name] = p
			if spec.Required {
				required = append(required, name)
			}
		}
		if required == nil {
			required = []string{}
		}
		schema, _ := json.Marshal(map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		})
		defs = append(defs, llm.FunctionDefinition{
			Name:        def.ID,
			Description: def.Description,
			Parameters:  schema,
		})
	}
	return defs
}
