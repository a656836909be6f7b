package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/docspace-portals/backend/internal/config"
	"github.com/docspace-portals/backend/internal/docspace"
	"github.com/docspace-portals/backend/internal/logging"
	"github.com/docspace-portals/backend/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultConfigName = "portal.yaml"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "portal",
		Short: "DocSpace patient portal backend",
		Long: `Backend for the DocSpace patient portal.

It keeps the patient directory and fill-and-sign assignments, and reports
each assignment's status by reconciling it with the forms room on DocSpace.`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is "+defaultConfigName+" next to the executable)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(newServeCmd(opts), newResolveCmd(opts), newVersionCmd())
	return cmd
}

// app holds what every command needs after startup.
type app struct {
	cfg        *config.AppConfig
	configPath string
	logger     *zap.Logger
}

// load reads configuration and builds the logger.
func (o *rootOptions) load() (*app, error) {
	path := o.configPath
	if path == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		path = filepath.Join(filepath.Dir(exePath), defaultConfigName)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s:\n%w", path, err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, configPath: path, logger: logger}, nil
}

func (a *app) openStore() (storage.Store, error) {
	return storage.Open(a.cfg.Storage.Driver, a.cfg.StorePath(), a.logger)
}

func (a *app) docspaceClient() (*docspace.Client, error) {
	return docspace.NewClient(docspace.Config{
		BaseURL:        a.cfg.DocSpace.BaseURL,
		APIKey:         a.cfg.DocSpace.APIKey,
		FormsRoomID:    a.cfg.DocSpace.FormsRoomID,
		FormsRoomTitle: a.cfg.DocSpace.FormsRoomTitle,
		Timeout:        a.cfg.DocSpaceTimeout(),
		RoomCacheTTL:   a.cfg.RoomCacheTTL(),
	}, a.logger)
}
