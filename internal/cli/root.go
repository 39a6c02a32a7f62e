// Package cli wires kvs's three subcommands (set, get, rm) onto the
// engine.Store rooted at the process's current working directory. It is
// a thin external collaborator: every decision about durability,
// compaction, and indexing belongs to the engine package.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"kvs/internal/engine"
)

var (
	store  *engine.Store
	logger *zap.Logger
)

// Execute runs the kvs command line, returning the error (if any) the
// invoked subcommand produced. The rm subcommand (see rm.go) calls
// os.Exit itself on a missing key instead of returning an error, since
// cobra's default error handling doesn't fit its "print a sentence,
// exit 1" contract.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kvs",
		Short:         "kvs is an embedded, log-structured key/value store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return openStore()
		},
	}

	root.AddCommand(newSetCmd(), newGetCmd(), newRmCmd())
	return root
}

// Each subcommand closes the store itself rather than relying on a
// PersistentPostRunE: cobra skips PersistentPostRunE whenever RunE returns
// an error, and rm needs to flush the store before calling os.Exit(1) on
// ErrKeyNotFound, which also bypasses any deferred/PostRun cleanup.

// openStore opens the store rooted at the current working directory,
// honoring the optional KVS_COMPACTION_THRESHOLD environment variable
// override read through viper.
func openStore() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix("kvs")
	v.AutomaticEnv()
	v.SetConfigName(".kvs")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	_ = v.ReadInConfig() // absent config file is the common case, not an error

	opts := []engine.Option{}
	if logger != nil {
		opts = append(opts, engine.WithLogger(logger))
	}
	if threshold := v.GetInt64("compaction_threshold"); threshold > 0 {
		opts = append(opts, engine.WithCompactionThreshold(threshold))
	}

	s, err := engine.Open(dir, opts...)
	if err != nil {
		return err
	}
	store = s
	return nil
}
