package cli

import "github.com/spf13/cobra"

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set the value of a string key to a string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := store.Set(args[0], args[1])
			if closeErr := store.Close(); err == nil {
				err = closeErr
			}
			return err
		},
	}
}
