package model

import (
	"encoding/json"
	"fmt"
)

// ComponentKind is the closed set of manifest component variants.
type ComponentKind int

const (
	// KindApplication is the <application> element.
	KindApplication ComponentKind = iota
	// KindActivity is an <activity> element.
	KindActivity
	// KindService is a <service> element.
	KindService
	// KindReceiver is a <receiver> element.
	KindReceiver
	// KindProvider is a <provider> element.
	KindProvider
)

// ComponentKinds lists every kind in manifest declaration order.
var ComponentKinds = []ComponentKind{
	KindApplication,
	KindActivity,
	KindService,
	KindReceiver,
	KindProvider,
}

// String returns the lowercase tag name of the kind. This is also the
// parent_kind value stored with meta-data rows.
func (k ComponentKind) String() string {
	switch k {
	case KindApplication:
		return "application"
	case KindActivity:
		return "activity"
	case KindService:
		return "service"
	case KindReceiver:
		return "receiver"
	case KindProvider:
		return "provider"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind by name.
func (k ComponentKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ParseComponentKind maps a lowercase tag name back to its kind.
func ParseComponentKind(s string) (ComponentKind, error) {
	for _, k := range ComponentKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown component kind %q", s)
}

// Component is one manifest component. Attrs is aligned index by index with
// Schema(Kind). ID is zero until the repository assigns one.
type Component struct {
	Kind  ComponentKind
	AppID int64
	ID    int64
	Attrs []AttrValue
}

// NewComponent returns a component of the given kind with every attribute
// set to its schema default.
func NewComponent(kind ComponentKind, appID int64) *Component {
	schema := Schema(kind)
	attrs := make([]AttrValue, len(schema))
	for i, spec := range schema {
		attrs[i] = spec.Default
	}
	return &Component{Kind: kind, AppID: appID, Attrs: attrs}
}

// Get returns the named attribute. Unknown names resolve to Absent.
func (c *Component) Get(name string) AttrValue {
	idx := AttrIndex(c.Kind, name)
	if idx < 0 || idx >= len(c.Attrs) {
		return Absent()
	}
	return c.Attrs[idx]
}

// Set stores an attribute value. Names outside the kind's schema are ignored
// and reported with false.
func (c *Component) Set(name string, v AttrValue) bool {
	idx := AttrIndex(c.Kind, name)
	if idx < 0 || idx >= len(c.Attrs) {
		return false
	}
	c.Attrs[idx] = v
	return true
}

// Name returns the android:name attribute, or "" when absent.
func (c *Component) Name() string {
	s, _ := c.Get("name").AsText()
	return s
}

// MarshalJSON encodes the component with its attributes keyed by name.
func (c *Component) MarshalJSON() ([]byte, error) {
	schema := Schema(c.Kind)
	attrs := make(map[string]AttrValue, len(schema))
	for i, spec := range schema {
		if i < len(c.Attrs) {
			attrs[spec.Name] = c.Attrs[i]
		}
	}
	return json.Marshal(struct {
		Kind  ComponentKind        `json:"kind"`
		ID    int64                `json:"id,omitempty"`
		AppID int64                `json:"app_id"`
		Attrs map[string]AttrValue `json:"attributes"`
	}{c.Kind, c.ID, c.AppID, attrs})
}

// MetaData is a <meta-data> child of exactly one component.
type MetaData struct {
	AppID      int64         `json:"app_id"`
	ParentKind ComponentKind `json:"parent_kind"`
	ParentID   int64         `json:"parent_id,omitempty"`
	Name       AttrValue     `json:"name"`
	Resource   AttrValue     `json:"resource"`
	Value      AttrValue     `json:"value"`
}
