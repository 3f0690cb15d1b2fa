package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/apkscan/internal/model"
)

const apkColumns = `id, sha256, file_name, file_path, package_name, cert_fingerprint, loaded_at, last_scanned`

// InsertAPK stores a loaded package. A package whose SHA-256 is already
// known is not inserted again; its existing id is returned with inserted
// set to false.
func (r *Repository) InsertAPK(ctx context.Context, apk *model.APK) (id int64, inserted bool, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT id FROM apks WHERE sha256 = ?`, apk.Hash).Scan(&id)
	if err == nil {
		apk.ID = id
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to look up apk: %w", err)
	}

	if apk.LoadedAt.IsZero() {
		apk.LoadedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx, `
	INSERT INTO apks (sha256, file_name, file_path, package_name, cert_fingerprint, loaded_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		apk.Hash,
		apk.FileName,
		apk.FilePath,
		nullString(apk.PackageName),
		nullString(apk.CertFingerprint),
		formatTimestamp(apk.LoadedAt),
	)
	if err != nil {
		return 0, false, fmt.Errorf("%w: insert apk: %v", ErrPersistence, err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("%w: insert apk: %v", ErrPersistence, err)
	}
	apk.ID = id
	return id, true, nil
}

// FindByID returns the package with the given id, or model.ErrInputNotFound.
func (r *Repository) FindByID(ctx context.Context, id int64) (*model.APK, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+apkColumns+` FROM apks WHERE id = ?`, id)
	apk, err := scanAPK(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no apk with id %d", model.ErrInputNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get apk: %w", err)
	}
	return apk, nil
}

// FindByName returns the package whose file name, or failing that package
// name, equals name. The oldest match wins.
func (r *Repository) FindByName(ctx context.Context, name string) (*model.APK, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT `+apkColumns+` FROM apks
	WHERE file_name = ? OR package_name = ?
	ORDER BY (file_name = ?) DESC, id
	LIMIT 1
	`, name, name, name)
	apk, err := scanAPK(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no apk named %q", model.ErrInputNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get apk: %w", err)
	}
	return apk, nil
}

// FindByIdentifier resolves a numeric identifier as an id and anything else
// as a name.
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*model.APK, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", model.ErrInputNotFound)
	}
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return r.FindByID(ctx, id)
	}
	return r.FindByName(ctx, identifier)
}

// ListAPKs returns all packages ordered by id.
func (r *Repository) ListAPKs(ctx context.Context) ([]*model.APK, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+apkColumns+` FROM apks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list apks: %w", err)
	}
	defer rows.Close()

	var apks []*model.APK
	for rows.Next() {
		apk, err := scanAPK(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan apk: %w", err)
		}
		apks = append(apks, apk)
	}
	return apks, rows.Err()
}

// MarkScanned records when a package was last scanned.
func (r *Repository) MarkScanned(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE apks SET last_scanned = ? WHERE id = ?`, formatTimestamp(at), id)
	if err != nil {
		return fmt.Errorf("%w: mark scanned: %v", ErrPersistence, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: no apk with id %d", model.ErrInputNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPK(row rowScanner) (*model.APK, error) {
	var (
		apk         model.APK
		pkg, cert   sql.NullString
		loadedAt    string
		lastScanned sql.NullString
	)
	if err := row.Scan(
		&apk.ID,
		&apk.Hash,
		&apk.FileName,
		&apk.FilePath,
		&pkg,
		&cert,
		&loadedAt,
		&lastScanned,
	); err != nil {
		return nil, err
	}
	apk.PackageName = pkg.String
	apk.CertFingerprint = cert.String
	apk.LoadedAt = parseTimestamp(loadedAt)
	if lastScanned.Valid && lastScanned.String != "" {
		t := parseTimestamp(lastScanned.String)
		apk.LastScanned = &t
	}
	return &apk, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
