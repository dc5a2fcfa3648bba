package actions

import (
	"strings"
	"testing"
)

func TestValidateMissingSubsets(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(testAreaControl())

	tests := []struct {
		name        string
		params      map[string]string
		wantValid   bool
		wantMissing []string
	}{
		{
			name:        "all present",
			params:      map[string]string{"area": "office", "turn": "off"},
			wantValid:   true,
			wantMissing: nil,
		},
		{
			name:        "area missing",
			params:      map[string]string{"turn": "off"},
			wantMissing: []string{"area"},
		},
		{
			name:        "both missing",
			params:      map[string]string{},
			wantMissing: []string{"area", "turn"},
		},
		{
			name:        "empty string counts as absent",
			params:      map[string]string{"area": "", "turn": "off"},
			wantMissing: []string{"area"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Validate(reg, "area_control", tt.params)
			if report.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", report.Valid, tt.wantValid)
			}
			if len(report.Missing) != len(tt.wantMissing) {
				t.Fatalf("Missing = %v, want names %v", report.Missing, tt.wantMissing)
			}
			for i, name := range tt.wantMissing {
				if report.Missing[i].Name != name {
					t.Errorf("Missing[%d] = %q, want %q", i, report.Missing[i].Name, name)
				}
			}
		})
	}
}

func TestValidateAllowedValueEnforcement(t *testing.T) {
	reg := NewRegistry(nil)
	def := testAreaControl()
	// An optional constrained parameter must still be checked when supplied.
	def.Params["brightness"] = ParamSpec{AllowedValues: []string{"low", "high"}}
	def.ParamOrder = append(def.ParamOrder, "brightness")
	reg.Register(def)

	report := Validate(reg, "area_control", map[string]string{
		"area":       "office",
		"turn":       "off",
		"brightness": "medium",
	})
	if report.Valid {
		t.Fatal("expected invalid report")
	}
	if len(report.Invalid) != 1 || report.Invalid[0].Name != "brightness" {
		t.Errorf("Invalid = %v, want brightness", report.Invalid)
	}
	if report.Invalid[0].Supplied != "medium" {
		t.Errorf("Supplied = %q, want medium", report.Invalid[0].Supplied)
	}
}

func TestValidateUnknownActionIsTriviallyValid(t *testing.T) {
	reg := NewRegistry(nil)
	report := Validate(reg, "ghost", map[string]string{"anything": "goes"})
	if !report.Valid {
		t.Error("unknown action must yield a trivially valid report")
	}
}

func TestValidationReportUserMessage(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(testAreaControl())

	report := Validate(reg, "area_control", map[string]string{"turn": "off"})
	msg := report.UserMessage()
	if !strings.Contains(msg, `"area"`) {
		t.Errorf("message should name the missing field: %q", msg)
	}
	if !strings.Contains(msg, "office, room") {
		t.Errorf("message should list allowed values: %q", msg)
	}

	valid := Validate(reg, "area_control", map[string]string{"area": "office", "turn": "off"})
	if valid.UserMessage() != "" {
		t.Error("valid report must format to empty string")
	}
}
