package manifest

import (
	"testing"

	"github.com/nao1215/apkscan/internal/model"
)

func TestCoerceBool(t *testing.T) {
	t.Parallel()

	var nilString *string
	yes := "Yes"

	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"nil is false", nil, false},
		{"nil string pointer is false", nilString, false},
		{"absent value is false", model.Absent(), false},
		{"bool true passes through", true, true},
		{"bool false passes through", false, false},
		{"lowercase true", "true", true},
		{"uppercase TRUE", "TRUE", true},
		{"mixed case Yes", "Yes", true},
		{"y", "y", true},
		{"one", "1", true},
		{"string pointer", &yes, true},
		{"surrounding space", " true ", true},
		{"maybe is false", "maybe", false},
		{"false string", "false", false},
		{"zero", "0", false},
		{"empty string", "", false},
		{"integer type is false", 1, false},
		{"bool attr value", model.Bool(true), true},
		{"text attr value", model.Text("YES"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CoerceBool(tt.in); got != tt.want {
				t.Errorf("CoerceBool(%#v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func FuzzCoerceBool(f *testing.F) {
	for _, seed := range []string{"true", "TRUE", "yes", "1", "maybe", "", "\x00"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		got := CoerceBool(s)
		if got != CoerceBool(&s) {
			t.Errorf("string and *string disagree for %q", s)
		}
	})
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	intSpec := model.AttrSpec{Name: "maxRecents", Rule: model.RuleInt, Default: model.Int(16)}
	realSpec := model.AttrSpec{Name: "maxAspectRatio", Rule: model.RuleReal, Default: model.Real(1.33)}
	boolSpec := model.AttrSpec{Name: "exported", Rule: model.RuleBool, Default: model.Bool(false)}
	textSpec := model.AttrSpec{Name: "label", Rule: model.RuleText}

	tests := []struct {
		name    string
		raw     string
		present bool
		spec    model.AttrSpec
		want    model.AttrValue
		wantErr bool
	}{
		{"missing int uses default", "", false, intSpec, model.Int(16), false},
		{"missing real uses default", "", false, realSpec, model.Real(1.33), false},
		{"missing bool is false", "", false, boolSpec, model.Bool(false), false},
		{"missing text is absent", "", false, textSpec, model.Absent(), false},
		{"decimal int", "25", true, intSpec, model.Int(25), false},
		{"hex int", "0x10", true, intSpec, model.Int(16), false},
		{"negative hex int", "-0x10", true, intSpec, model.Int(-16), false},
		{"leading zero stays decimal", "010", true, intSpec, model.Int(10), false},
		{"digit separators fail", "1_0", true, intSpec, model.Absent(), true},
		{"not a number fails", "NaN", true, realSpec, model.Absent(), true},
		{"infinity fails", "Inf", true, realSpec, model.Absent(), true},
		{"negative infinity fails", "-infinity", true, realSpec, model.Absent(), true},
		{"real", "2.1", true, realSpec, model.Real(2.1), false},
		{"resource reference kept as text", "@0x7f0b0001", true, intSpec, model.Text("@0x7f0b0001"), false},
		{"theme reference kept as text", "?attr/ratio", true, realSpec, model.Text("?attr/ratio"), false},
		{"garbage int fails", "many", true, intSpec, model.Absent(), true},
		{"garbage real fails", "wide", true, realSpec, model.Absent(), true},
		{"loose bool", "Y", true, boolSpec, model.Bool(true), false},
		{"empty text is present", "", true, textSpec, model.Text(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Coerce(tt.raw, tt.present, tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Coerce(%q) = %v (%s), want %v (%s)", tt.raw, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}
