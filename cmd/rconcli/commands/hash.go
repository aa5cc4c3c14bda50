package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gorcon/internal/rcon"
)

// hashCmd provisions a credential record suitable for the rcon.credential
// configuration key, from a plaintext secret supplied as the sole argument.
func hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <secret>",
		Short: "Generate an rcon.credential record from a plaintext secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			record, err := rcon.Hash(args[0])
			if err != nil {
				return fmt.Errorf("hash secret: %w", err)
			}

			fmt.Println(rcon.EncodeRecord(record))
			return nil
		},
	}
}
