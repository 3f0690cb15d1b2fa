package manifest

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"
)

func TestParseXML(t *testing.T) {
	t.Parallel()

	t.Run("declared android namespace", func(t *testing.T) {
		t.Parallel()
		doc := `<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="com.example">
  <application android:name=".App"/>
</manifest>`
		root, err := ParseXML(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !root.MatchTag("manifest") {
			t.Errorf("expected manifest root, got %s", root.Tag())
		}
		if got := AttrOr(root, "", "package", ""); got != "com.example" {
			t.Errorf("expected package com.example, got %q", got)
		}
		app := root.Elements[0]
		if v, ok := app.Attr(AndroidNamespace, "name"); !ok || v != ".App" {
			t.Errorf("expected android:name .App, got %q (ok=%v)", v, ok)
		}
	})

	t.Run("undeclared android prefix is normalized", func(t *testing.T) {
		t.Parallel()
		root, err := ParseXML(strings.NewReader(`<manifest><activity android:exported="true"/></manifest>`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v, ok := root.Elements[0].Attr(AndroidNamespace, "exported"); !ok || v != "true" {
			t.Errorf("expected exported=true, got %q (ok=%v)", v, ok)
		}
	})

	t.Run("empty document is malformed", func(t *testing.T) {
		t.Parallel()
		_, err := ParseXML(strings.NewReader(""))
		if !errors.Is(err, ErrMalformedManifest) {
			t.Errorf("expected ErrMalformedManifest, got %v", err)
		}
	})
}

func TestElementMatchTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  xml.Name
		local string
		want  bool
	}{
		{xml.Name{Local: "activity"}, "activity", true},
		{xml.Name{Space: "urn:x", Local: "activity"}, "activity", true},
		{xml.Name{Local: "ns:activity"}, "activity", true},
		{xml.Name{Local: "activity-alias"}, "activity", false},
		{xml.Name{Local: "myactivity"}, "activity", false},
	}
	for _, tt := range tests {
		el := &Element{Name: tt.name}
		if got := el.MatchTag(tt.local); got != tt.want {
			t.Errorf("MatchTag(%q) on %q = %v, want %v", tt.local, el.Tag(), got, tt.want)
		}
	}
}
