package manifest

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/apkscan/internal/model"
)

// Tags the walker recognizes besides component tags.
const (
	tagManifest         = "manifest"
	tagMetaData         = "meta-data"
	tagQueries          = "queries"
	tagUsesPermission   = "uses-permission"
	tagUsesPermission23 = "uses-permission-sdk-23"
)

// componentTags maps component tag local names to their kinds.
var componentTags = []struct {
	tag  string
	kind model.ComponentKind
}{
	{"application", model.KindApplication},
	{"activity", model.KindActivity},
	{"service", model.KindService},
	{"receiver", model.KindReceiver},
	{"provider", model.KindProvider},
}

// Entry is one extracted component and its direct meta-data children.
type Entry struct {
	Component *model.Component
	MetaData  []model.MetaData
}

// Result is the outcome of one manifest walk.
type Result struct {
	// PackageName is the package attribute of the root element, if any.
	PackageName string

	// Entries are the components in document order.
	Entries []Entry

	// Permissions are uses-permission names in document order.
	Permissions []string
}

// Count returns the number of entries of kind.
func (r *Result) Count(kind model.ComponentKind) int {
	n := 0
	for _, e := range r.Entries {
		if e.Component.Kind == kind {
			n++
		}
	}
	return n
}

// Walker extracts typed components from a manifest tree.
type Walker struct {
	logger *slog.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithWalkerLogger sets the logger used for extraction diagnostics.
func WithWalkerLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker.
func NewWalker(opts ...WalkerOption) *Walker {
	w := &Walker{}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Extract traverses root depth-first in document order and returns every
// component it can build, stamped with appID. The <queries> subtree only
// lists other apps and is not descended into. Components that cannot be
// built, and a root that is not <manifest>, are reported in the returned
// error (wrapping ErrMalformedManifest) without dropping the rest.
func (w *Walker) Extract(root Node, appID int64) (*Result, error) {
	result := &Result{}
	if root == nil {
		return result, fmt.Errorf("%w: empty element tree", ErrMalformedManifest)
	}

	var errs []error
	if !root.MatchTag(tagManifest) {
		errs = append(errs, fmt.Errorf("%w: root element is <%s>, expected <manifest>", ErrMalformedManifest, root.Tag()))
	}
	result.PackageName = AttrOr(root, "", "package", "")

	var visit func(n Node)
	visit = func(n Node) {
		switch {
		case n.MatchTag(tagQueries):
			// <provider> under <queries> names another app's provider.
			return
		case n.MatchTag(tagUsesPermission), n.MatchTag(tagUsesPermission23):
			if name, ok := n.Attr(AndroidNamespace, "name"); ok && name != "" {
				result.Permissions = append(result.Permissions, name)
			}
		default:
			if kind, ok := classify(n); ok {
				entry, err := w.buildEntry(n, kind, appID)
				if err != nil {
					w.logger.Warn("skipping malformed component", "kind", kind.String(), "error", err)
					errs = append(errs, err)
				} else {
					result.Entries = append(result.Entries, entry)
				}
			}
		}
		for _, child := range n.Children() {
			visit(child)
		}
	}
	visit(root)

	return result, errors.Join(errs...)
}

func classify(n Node) (model.ComponentKind, bool) {
	for _, ct := range componentTags {
		if n.MatchTag(ct.tag) {
			return ct.kind, true
		}
	}
	return 0, false
}

// buildEntry builds the component record of n and its direct meta-data.
func (w *Walker) buildEntry(n Node, kind model.ComponentKind, appID int64) (Entry, error) {
	comp := model.NewComponent(kind, appID)
	for i, spec := range model.Schema(kind) {
		raw, ok := n.Attr(AndroidNamespace, spec.Name)
		v, err := Coerce(raw, ok, spec)
		if err != nil {
			name := AttrOr(n, AndroidNamespace, "name", "(unnamed)")
			return Entry{}, fmt.Errorf("%w: %s %s: %v", ErrMalformedManifest, kind, name, err)
		}
		comp.Attrs[i] = v
	}

	entry := Entry{Component: comp, MetaData: []model.MetaData{}}
	for _, child := range n.Children() {
		if !child.MatchTag(tagMetaData) {
			continue
		}
		entry.MetaData = append(entry.MetaData, model.MetaData{
			AppID:      appID,
			ParentKind: kind,
			Name:       textAttr(child, "name"),
			Resource:   textAttr(child, "resource"),
			Value:      textAttr(child, "value"),
		})
	}
	return entry, nil
}

func textAttr(n Node, local string) model.AttrValue {
	if v, ok := n.Attr(AndroidNamespace, local); ok {
		return model.Text(v)
	}
	return model.Absent()
}
