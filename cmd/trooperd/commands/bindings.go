package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "Prepare the shapes container and print its binding table",
	Long: `Prepare the shapes container once, print every binding key in
registration order, then stop it. Nothing is served.`,
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		_, sc, err := bootstrap()
		if err != nil {
			return err
		}
		if err := sc.Prepare(); err != nil {
			return fmt.Errorf("prepare %s: %w", sc.Name(), err)
		}
		defer func() { err = multierr.Append(err, sc.Stop()) }()

		keys := sc.Bindings()
		cmd.Printf("%s: %d bindings\n", sc.Name(), len(keys))
		for _, k := range keys {
			cmd.Printf("  %s\n", k)
		}
		return nil
	},
}
