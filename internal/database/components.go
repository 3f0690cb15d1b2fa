package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nao1215/apkscan/internal/model"
)

// SaveComponent stores a component and its meta-data in one transaction.
// On success comp.ID and every meta-data ParentID are set to the generated
// id. On failure nothing is stored and the error wraps ErrPersistence.
func (r *Repository) SaveComponent(ctx context.Context, comp *model.Component, meta []model.MetaData) (id int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error is what matters
		}
	}()

	id, err = insertComponent(ctx, tx, comp)
	if err != nil {
		return 0, fmt.Errorf("%w: insert %s: %v", ErrPersistence, comp.Kind, err)
	}

	for i := range meta {
		md := meta[i]
		md.AppID = comp.AppID
		md.ParentKind = comp.Kind
		md.ParentID = id
		if _, err = tx.ExecContext(ctx, `
		INSERT INTO metadata (app_id, parent_kind, parent_id, name, resource, value)
		VALUES (?, ?, ?, ?, ?, ?)
		`, md.AppID, md.ParentKind.String(), md.ParentID, md.Name, md.Resource, md.Value); err != nil {
			return 0, fmt.Errorf("%w: insert meta-data of %s: %v", ErrPersistence, comp.Kind, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}

	comp.ID = id
	for i := range meta {
		meta[i].AppID = comp.AppID
		meta[i].ParentKind = comp.Kind
		meta[i].ParentID = id
	}
	return id, nil
}

func insertComponent(ctx context.Context, tx *sql.Tx, comp *model.Component) (int64, error) {
	schema := model.Schema(comp.Kind)
	if len(comp.Attrs) != len(schema) {
		return 0, fmt.Errorf("component has %d attributes, schema has %d", len(comp.Attrs), len(schema))
	}

	cols := make([]string, 0, len(schema)+1)
	args := make([]any, 0, len(schema)+1)
	cols = append(cols, "app_id")
	args = append(args, comp.AppID)
	for i, spec := range schema {
		cols = append(cols, quoteIdent(spec.Name))
		args = append(args, comp.Attrs[i])
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(model.TableName(comp.Kind)), strings.Join(cols, ", "), placeholders)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ClearManifest removes the stored components, meta-data and permissions of
// an APK so that a rescan replaces them.
func (r *Repository) ClearManifest(ctx context.Context, appID int64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error is what matters
		}
	}()

	tables := []string{"metadata", "permissions"}
	for _, kind := range model.ComponentKinds {
		tables = append(tables, model.TableName(kind))
	}
	for _, table := range tables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+quoteIdent(table)+" WHERE app_id = ?", appID); err != nil {
			return fmt.Errorf("%w: clear %s: %v", ErrPersistence, table, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

// SavePermissions stores uses-permission names in manifest order.
func (r *Repository) SavePermissions(ctx context.Context, appID int64, names []string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error is what matters
		}
	}()

	for i, name := range names {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO permissions (app_id, position, name) VALUES (?, ?, ?)`, appID, i, name); err != nil {
			return fmt.Errorf("%w: insert permission: %v", ErrPersistence, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

// Permissions returns the stored uses-permission names of an APK in
// manifest order.
func (r *Repository) Permissions(ctx context.Context, appID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM permissions WHERE app_id = ? ORDER BY position`, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Components returns the stored components of one kind for an APK, in
// insertion order, with attribute values rebuilt through the schema.
func (r *Repository) Components(ctx context.Context, appID int64, kind model.ComponentKind) ([]*model.Component, error) {
	schema := model.Schema(kind)
	cols := make([]string, 0, len(schema)+2)
	cols = append(cols, "id", "app_id")
	for _, spec := range schema {
		cols = append(cols, quoteIdent(spec.Name))
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE app_id = ? ORDER BY id",
		strings.Join(cols, ", "), quoteIdent(model.TableName(kind)))

	rows, err := r.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", kind, err)
	}
	defer rows.Close()

	var comps []*model.Component
	for rows.Next() {
		comp := model.NewComponent(kind, appID)
		raw := make([]any, len(schema))
		dest := make([]any, 0, len(schema)+2)
		dest = append(dest, &comp.ID, &comp.AppID)
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		for i, spec := range schema {
			comp.Attrs[i] = fromColumn(raw[i], spec.Rule)
		}
		comps = append(comps, comp)
	}
	return comps, rows.Err()
}

// MetaData returns the stored meta-data records of an APK in insertion
// order.
func (r *Repository) MetaData(ctx context.Context, appID int64) ([]model.MetaData, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT app_id, parent_kind, parent_id, name, resource, value
	FROM metadata WHERE app_id = ? ORDER BY id
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to query meta-data: %w", err)
	}
	defer rows.Close()

	var result []model.MetaData
	for rows.Next() {
		var (
			md                    model.MetaData
			kind                  string
			name, resource, value sql.NullString
		)
		if err := rows.Scan(&md.AppID, &kind, &md.ParentID, &name, &resource, &value); err != nil {
			return nil, fmt.Errorf("failed to scan meta-data: %w", err)
		}
		parentKind, err := model.ParseComponentKind(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meta-data: %w", err)
		}
		md.ParentKind = parentKind
		md.Name = nullText(name)
		md.Resource = nullText(resource)
		md.Value = nullText(value)
		result = append(result, md)
	}
	return result, rows.Err()
}

// fromColumn rebuilds an attribute value from a scanned column using the
// attribute's schema rule. Text stored in numeric columns (unresolved
// resource references) comes back as Text.
func fromColumn(v any, rule model.Rule) model.AttrValue {
	switch x := v.(type) {
	case nil:
		return model.Absent()
	case []byte:
		return model.Text(string(x))
	case string:
		return model.Text(x)
	case bool:
		return model.Bool(x)
	case int64:
		switch rule {
		case model.RuleBool:
			return model.Bool(x != 0)
		case model.RuleReal:
			return model.Real(float64(x))
		case model.RuleText:
			return model.Text(fmt.Sprint(x))
		default:
			return model.Int(x)
		}
	case float64:
		if rule == model.RuleInt {
			return model.Int(int64(x))
		}
		if rule == model.RuleText {
			return model.Text(fmt.Sprint(x))
		}
		return model.Real(x)
	default:
		return model.Text(fmt.Sprint(x))
	}
}

func nullText(s sql.NullString) model.AttrValue {
	if !s.Valid {
		return model.Absent()
	}
	return model.Text(s.String)
}
