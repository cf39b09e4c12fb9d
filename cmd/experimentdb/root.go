package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"experimentdb/internal/config"
	"experimentdb/internal/core"
	"experimentdb/internal/logging"
)

// app carries the resolved settings from the root command to subcommands.
type app struct {
	v          *viper.Viper
	configFile string
	envFiles   []string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:          "experimentdb",
		Short:        "Lab records for cloning, mutagenesis, protocols and experiments",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (yaml, toml or json)")
	flags.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment is read")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("storage-driver", "sqlite", "storage backend: memory, sqlite or postgres")
	flags.String("sqlite-path", "experimentdb.db", "sqlite database file")
	flags.String("postgres-dsn", "", "postgres connection string")
	a.bind(root, map[string]string{
		"log.level":            "log-level",
		"storage.driver":       "storage-driver",
		"storage.sqlite_path":  "sqlite-path",
		"storage.postgres_dsn": "postgres-dsn",
	})

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newLoadDataCommand(a),
	)
	return root
}

// bind maps viper keys onto flags of cmd. Persistent flags are looked up
// before local ones.
func (a *app) bind(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			f = cmd.Flags().Lookup(name)
		}
		if err := a.v.BindPFlag(key, f); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// init resolves configuration and installs a logger writing to w.
func (a *app) init(w io.Writer) error {
	if err := config.LoadDotEnv(a.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	logger, err := logging.Init(w, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// openStore opens the configured backend, creating its schema.
func (a *app) openStore(cmd *cobra.Command) (core.PersistentStore, error) {
	opts := a.cfg.StorageOptions()
	store, err := core.OpenPersistentStore(cmd.Context(), opts)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", opts.Driver, err)
	}
	a.logger.Debug("storage opened", "driver", opts.Driver)
	return store, nil
}

func closeStore(logger *slog.Logger, store core.PersistentStore) {
	if err := store.Close(); err != nil {
		logger.Warn("close storage", "err", err)
	}
}
