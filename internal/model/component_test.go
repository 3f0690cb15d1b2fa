package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSchema(t *testing.T) {
	t.Parallel()

	t.Run("attribute counts per kind", func(t *testing.T) {
		t.Parallel()
		want := map[ComponentKind]int{
			KindApplication: 44,
			KindActivity:    42,
			KindService:     12,
			KindReceiver:    8,
			KindProvider:    14,
		}
		for kind, n := range want {
			if got := len(Schema(kind)); got != n {
				t.Errorf("%s: expected %d attributes, got %d", kind, n, got)
			}
		}
	})

	t.Run("names are unique within a kind", func(t *testing.T) {
		t.Parallel()
		for _, kind := range ComponentKinds {
			seen := make(map[string]bool)
			for _, spec := range Schema(kind) {
				if seen[spec.Name] {
					t.Errorf("%s: duplicate attribute %q", kind, spec.Name)
				}
				seen[spec.Name] = true
			}
		}
	})

	t.Run("bool attributes default to false", func(t *testing.T) {
		t.Parallel()
		for _, kind := range ComponentKinds {
			for _, spec := range Schema(kind) {
				if spec.Rule != RuleBool {
					continue
				}
				if !spec.Default.Equal(Bool(false)) {
					t.Errorf("%s.%s: expected false default, got %v", kind, spec.Name, spec.Default)
				}
			}
		}
	})

	t.Run("every kind has a table", func(t *testing.T) {
		t.Parallel()
		for _, kind := range ComponentKinds {
			if TableName(kind) == "" {
				t.Errorf("%s: empty table name", kind)
			}
		}
	})
}

func TestNewComponent(t *testing.T) {
	t.Parallel()

	c := NewComponent(KindActivity, 9)

	t.Run("numeric defaults", func(t *testing.T) {
		t.Parallel()
		if !c.Get("maxRecents").Equal(Int(16)) {
			t.Errorf("expected maxRecents 16, got %v", c.Get("maxRecents"))
		}
		if !c.Get("maxAspectRatio").Equal(Real(1.33)) {
			t.Errorf("expected maxAspectRatio 1.33, got %v", c.Get("maxAspectRatio"))
		}
	})

	t.Run("text attributes start absent", func(t *testing.T) {
		t.Parallel()
		if c.Get("label").Present() {
			t.Error("expected label to be absent")
		}
	})

	t.Run("unknown attribute resolves to absent", func(t *testing.T) {
		t.Parallel()
		if c.Get("doesNotExist").Present() {
			t.Error("expected unknown attribute to be absent")
		}
	})
}

func TestComponentSet(t *testing.T) {
	t.Parallel()

	c := NewComponent(KindReceiver, 1)
	if !c.Set("name", Text(".BootReceiver")) {
		t.Fatal("expected name to be settable")
	}
	if c.Set("maxRecents", Int(3)) {
		t.Error("expected attribute outside the receiver schema to be rejected")
	}
	if c.Name() != ".BootReceiver" {
		t.Errorf("expected .BootReceiver, got %q", c.Name())
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"receiver"`) {
		t.Errorf("expected kind in JSON, got %s", data)
	}
}

func TestParseComponentKind(t *testing.T) {
	t.Parallel()

	for _, kind := range ComponentKinds {
		got, err := ParseComponentKind(kind.String())
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", kind, err)
		}
		if got != kind {
			t.Errorf("expected %s, got %s", kind, got)
		}
	}
	if _, err := ParseComponentKind("uses-permission"); err == nil {
		t.Error("expected error for non-component tag")
	}
}
