package actions

import (
	"testing"
)

func testAreaControl() *Definition {
	return &Definition{
		ID:            "area_control",
		ExternalAlias: "area",
		Kind:          KindRemoteWebhook,
		Description:   "Turn the lights of an area on or off",
		ParamOrder:    []string{"area", "turn"},
		Params: map[string]ParamSpec{
			"area": {
				Required:      true,
				AllowedValues: []string{"office", "room"},
				Keywords: map[string][]string{
					"office": {"office", "desk"},
					"room":   {"bedroom", "room"},
				},
			},
			"turn": {
				Required:      true,
				AllowedValues: []string{"on", "off"},
				Keywords: map[string][]string{
					"on":  {"turn on", "switch on", "enable"},
					"off": {"turn off", "switch off", "disable"},
				},
			},
		},
	}
}

func TestRegistryFindByIDAndAlias(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(testAreaControl())

	if _, ok := reg.Find("area_control"); !ok {
		t.Error("expected to find action by ID")
	}
	if _, ok := reg.Find("area"); !ok {
		t.Error("expected to find action by external alias")
	}
	if _, ok := reg.Find("nope"); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestRegistryOverwriteKeepsOrder(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(&Definition{ID: "a", Kind: KindRemoteWebhook})
	reg.Register(&Definition{ID: "b", Kind: KindRemoteWebhook})

	// Re-registering must overwrite, not duplicate.
	updated := &Definition{ID: "a", Kind: KindRemoteWebhook, Description: "v2"}
	reg.Register(updated)

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(list))
	}
	if list[0].ID != "a" || list[1].ID != "b" {
		t.Errorf("insertion order broken: %s, %s", list[0].ID, list[1].ID)
	}
	if list[0].Description != "v2" {
		t.Errorf("expected overwritten definition, got %q", list[0].Description)
	}
}

func TestRegistryOverwriteDropsStaleAlias(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(&Definition{ID: "garage", ExternalAlias: "garage-old", Kind: KindRemoteWebhook})
	reg.Register(&Definition{ID: "garage", ExternalAlias: "garage-new", Kind: KindRemoteWebhook, Description: "v2"})

	if _, ok := reg.Find("garage-old"); ok {
		t.Error("stale alias still resolves after overwrite")
	}
	def, ok := reg.Find("garage-new")
	if !ok || def.Description != "v2" {
		t.Errorf("new alias should resolve to updated definition, got %v ok=%v", def, ok)
	}
}

func TestRegistryWebhooksFilter(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(&Definition{ID: "!weather", Kind: KindLocalCommand})
	reg.Register(testAreaControl())

	hooks := reg.Webhooks()
	if len(hooks) != 1 || hooks[0].ID != "area_control" {
		t.Errorf("expected only area_control, got %v", hooks)
	}
}

func TestRegistryPopulatesParamOrder(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(&Definition{
		ID:   "x",
		Kind: KindRemoteWebhook,
		Params: map[string]ParamSpec{
			"b": {}, "a": {}, "c": {},
		},
	})
	def, _ := reg.Find("x")
	want := []string{"a", "b", "c"}
	for i, name := range def.ParamOrder {
		if name != want[i] {
			t.Fatalf("ParamOrder = %v, want %v", def.ParamOrder, want)
		}
	}
}
