package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// Opener builds the App a command runs against. It is called once, after flag
// parsing, so help and usage never touch the network.
type Opener func(ctx context.Context) (*App, error)

// NewRootCmd returns the acadrive command tree.
func NewRootCmd(open Opener) *cobra.Command {
	var app *App

	root := &cobra.Command{
		Use:           "acadrive",
		Short:         "Share, find and rate academic documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			if a == nil {
				return errors.New("client not configured")
			}
			app = a
			return nil
		},
	}

	get := func() *App { return app }
	root.AddCommand(
		whoamiCmd(get),
		uploadCmd(get),
		browseCmd(get),
		voteCmd(get),
		votesCmd(get),
		downloadCmd(get),
		linkCmd(get),
		deleteCmd(get),
	)
	return root
}
