package main

import (
	"encoding/json"
	"io"

	"github.com/agentuity/stockroom/barcode"
	"github.com/agentuity/stockroom/config"
	"github.com/agentuity/stockroom/env"
	"github.com/agentuity/stockroom/storage"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var errNotFound = errors.New("not found")

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "barcodectl",
		Short:         "Inspect and maintain the barcode lookup cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")
	root.PersistentFlags().String("store", "", "storage DSN (memory, file:<dir>, sqlite:<path>, redis://...)")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newGetCommand(),
		newSetCommand(),
		newSearchCommand(),
		newCleanCommand(),
		newStatsCommand(),
		newImportCommand(),
	)
	return root
}

// openCache builds the cache described by the flags, environment and config
// file. The returned store must be closed by the caller.
func openCache(cmd *cobra.Command) (*barcode.Cache, storage.Store, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := env.LoadEnvFile(envFile); err != nil {
			return nil, nil, err
		}
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if dsn, _ := cmd.Flags().GetString("store"); dsn != "" {
		cfg.Store = dsn
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	log := env.NewLogger(cmd, cfg.LogLevel).WithPrefix("[barcodectl]")
	store, err := cfg.OpenStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	log.Debug("using store %s key %s", cfg.Store, cfg.CacheKey)
	return barcode.New(store, cfg.Options(log)...), store, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
