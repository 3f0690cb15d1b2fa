package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/apkscan/internal/database"
	applog "github.com/nao1215/apkscan/internal/log"
	"github.com/nao1215/apkscan/internal/session"
)

// env bundles what repository-backed commands share: the opened repository,
// the session store, a logger and the output styles.
type env struct {
	repo     *database.Repository
	sessions *session.Store
	logger   *slog.Logger
	ui       *ui
}

// openEnv opens the repository under --data-dir and the session store at
// --session-file.
func openEnv(cmd *cobra.Command) (*env, error) {
	dataDir, err := persistentString(cmd, "data-dir")
	if err != nil {
		return nil, err
	}
	sessionFile, err := persistentString(cmd, "session-file")
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd)
	repo, err := database.Open(dataDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	logger.Debug("repository opened", "path", repo.Path())

	return &env{
		repo:     repo,
		sessions: session.NewStore(sessionFile),
		logger:   logger,
		ui:       newUI(cmd),
	}, nil
}

// Close releases the repository.
func (e *env) Close() error {
	return e.repo.Close()
}

// newLogger builds the secure logger selected by --verbose and --log-json.
// Logs go to the command's error stream so reports on stdout stay clean.
func newLogger(cmd *cobra.Command, opts ...applog.Option) *slog.Logger {
	verbose := persistentBool(cmd, "verbose")
	if persistentBool(cmd, "log-json") {
		return applog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose, opts...)
	}
	return applog.NewSecureLogger(cmd.ErrOrStderr(), verbose, opts...)
}

// persistentBool retrieves a boolean flag from the command or the root.
func persistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// persistentString retrieves a string flag from the command or the root.
func persistentString(cmd *cobra.Command, name string) (string, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return "", err
		}
	}
	if v == "" {
		return "", errors.New("--" + name + " must not be empty")
	}
	return v, nil
}
