package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-trooper/framework/app"
	"github.com/km-arc/go-trooper/framework/config"
	"github.com/km-arc/go-trooper/framework/container"
	"github.com/km-arc/go-trooper/framework/web"
	"github.com/km-arc/go-trooper/internal/shapes"
)

var (
	apiAddr string
	team    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the supervisor and serve until interrupted",
	Long: `Start the supervisor: the admin server first, then the shapes
container, then the API serving it. SIGINT or SIGTERM stops everything in
the same order.

Examples:
  # Run with defaults
  trooperd run

  # Bigger square, component values from a file
  TROOPER_SHAPES_SQUARE_SIDE=3 trooperd run --config shapes.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, sc, err := bootstrap()
		if err != nil {
			return err
		}
		svc := web.NewService("api", apiAddr, sc, a.Settings.Admin.ShutdownTimeout)
		a.Supervisor.Register(svc)
		return a.Run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&apiAddr, "addr", ":8080", "API listen address")
	runCmd.Flags().StringVar(&team, "team", "geometry", "owner team registered as an external entity")
}

// bootstrap loads settings and builds the application with the shapes
// container registered first.
func bootstrap() (*app.Application, *container.Container, error) {
	settings := config.Load(envFiles...)
	if len(configFiles) > 0 {
		settings.Container.ConfigFiles = configFiles
	}
	a, err := app.New(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}
	sc := a.ContainerOrdered("shapes", 1, shapes.Namespace()).
		RegisterEntity(&shapes.Owner{Team: team})
	return a, sc, nil
}
