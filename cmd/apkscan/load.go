package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/apkscan/internal/manifest"
	"github.com/nao1215/apkscan/internal/model"
)

// NewLoadCmd creates the load command.
func NewLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Register APK files with the repository",
		Long: `Load hashes APK files and records them in the repository.

A package whose SHA-256 is already known is not registered twice. The
package name and the signing certificate fingerprint are recorded when they
can be read; a package without them is still loaded.

Examples:
  # Load a single package
  apkscan load -f app-release.apk

  # Load every .apk file in a directory
  apkscan load -d ./samples`,
		Args: cobra.NoArgs,
		RunE: runLoadCmd,
	}

	cmd.Flags().StringSliceP("file", "f", nil, "APK file to load (repeatable)")
	cmd.Flags().StringP("dir", "d", "", "Directory whose .apk files are loaded")

	return cmd
}

// runLoadCmd executes the load command.
func runLoadCmd(cmd *cobra.Command, _ []string) error {
	files, err := cmd.Flags().GetStringSlice("file")
	if err != nil {
		return err
	}
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}

	paths := slices.Clone(files)
	if dir != "" {
		found, err := apkFiles(dir)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("%w: no .apk files in %s", model.ErrInputNotFound, dir)
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return errors.New("no packages given (use -f <apk> or -d <dir>)")
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	failed := 0
	for _, path := range paths {
		if err := loadOne(cmd.Context(), e, path); err != nil {
			e.logger.Error("failed to load package", "path", path, "error", err)
			e.ui.println(e.ui.failure, fmt.Sprintf("Failed %s: %v", path, err))
			failed++
		}
	}

	if failed == len(paths) {
		return fmt.Errorf("no package could be loaded (%d failed)", failed)
	}
	return nil
}

// loadOne registers one package and prints the outcome.
func loadOne(ctx context.Context, e *env, path string) error {
	info, err := manifest.Inspect(path)
	if info == nil {
		return err
	}
	if err != nil {
		e.logger.Warn("incomplete package metadata", "path", path, "error", err)
	}

	apk := &model.APK{
		Hash:            info.SHA256,
		FileName:        info.FileName,
		FilePath:        info.FilePath,
		PackageName:     info.PackageName,
		CertFingerprint: info.CertFingerprint,
	}
	id, inserted, err := e.repo.InsertAPK(ctx, apk)
	if err != nil {
		return err
	}

	if inserted {
		e.ui.println(e.ui.success, fmt.Sprintf("Loaded %s (id %d)", info.FileName, id))
	} else {
		e.ui.println(e.ui.dim, fmt.Sprintf("Already loaded %s (id %d)", info.FileName, id))
	}
	return nil
}

// apkFiles returns the .apk files directly inside dir, sorted by name.
func apkFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrInputNotFound, dir)
		}
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".apk") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}
