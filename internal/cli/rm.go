package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kvs/internal/engine"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm KEY",
		Short: "Remove a given string key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := store.Remove(args[0])
			closeErr := store.Close()

			if errors.Is(err, engine.ErrKeyNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "Key not found")
				os.Exit(1)
			}
			if err != nil {
				return err
			}
			return closeErr
		},
	}
}
