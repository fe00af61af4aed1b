package commands

import (
	"fmt"
	"io"

	"fintrack/pkg/push"

	"github.com/spf13/cobra"
)

func newVAPIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid",
		Short: "Generate a VAPID key pair for Web Push",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVAPID(cmd.OutOrStdout())
		},
	}
}

func runVAPID(w io.Writer) error {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	_, err = fmt.Fprintf(w, "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
	return err
}
