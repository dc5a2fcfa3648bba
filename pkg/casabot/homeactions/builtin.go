// Package homeactions populates the action registry with the built-in
// Home Assistant style webhook actions and loads extra definitions from a
// declarative YAML catalog.
package homeactions

import (
	"regexp"

	"casabot/pkg/casabot/actions"
)

// Register installs the built-in action definitions.
func Register(reg *actions.Registry) {
	reg.Register(&actions.Definition{
		ID:          "area_control",
		Kind:        actions.KindRemoteWebhook,
		Description: "Turn the lights of a home area on or off",
		Params: map[string]actions.ParamSpec{
			"area": {
				Required:      true,
				AllowedValues: []string{"office", "room", "kitchen", "living_room"},
				Keywords: map[string][]string{
					"office":      {"office", "desk", "study"},
					"room":        {"room", "bedroom"},
					"kitchen":     {"kitchen"},
					"living_room": {"living room", "lounge", "sala"},
				},
				Description: "Which area of the house to control",
			},
			"turn": {
				Required:      true,
				AllowedValues: []string{"on", "off"},
				Keywords: map[string][]string{
					"on":  {"turn on", "switch on", " on", "enable", "light up"},
					"off": {"turn off", "switch off", " off", "disable", "lights out"},
				},
				Description: "Whether to switch on or off",
			},
		},
		ParamOrder: []string{"area", "turn"},
		Examples: []string{
			"turn off the office lights",
			"switch the bedroom light on",
		},
	})

	reg.Register(&actions.Definition{
		ID:          "media_player",
		Kind:        actions.KindRemoteWebhook,
		Description: "Control the living room media player",
		Params: map[string]actions.ParamSpec{
			"action": {
				Required:      true,
				AllowedValues: []string{"play", "pause", "stop", "next", "previous"},
				Keywords: map[string][]string{
					"play":     {"play", "resume", "start the music"},
					"pause":    {"pause", "hold"},
					"stop":     {"stop", "shut up", "silence"},
					"next":     {"next", "skip"},
					"previous": {"previous", "back", "last song"},
				},
				Description: "Playback action",
			},
		},
		ParamOrder: []string{"action"},
		Examples: []string{
			"pause the music",
			"skip this song",
		},
	})

	reg.Register(&actions.Definition{
		ID:          "climate_set",
		Kind:        actions.KindRemoteWebhook,
		Description: "Set the thermostat target temperature",
		Params: map[string]actions.ParamSpec{
			"temperature": {
				Required:    true,
				Pattern:     regexp.MustCompile(`(\d{1,2})\s*(?:°|degrees|graus)?`),
				Description: "Target temperature in °C",
			},
			"mode": {
				Required:      false,
				AllowedValues: []string{"heat", "cool", "auto"},
				Default:       "auto",
				Keywords: map[string][]string{
					"heat": {"heat", "warm", "warmer"},
					"cool": {"cool", "cold", "colder", "ac"},
					"auto": {"auto"},
				},
				Description: "Thermostat mode",
			},
		},
		ParamOrder: []string{"temperature", "mode"},
		Examples: []string{
			"set the thermostat to 22 degrees",
			"make it warmer, 24°",
		},
	})
}
