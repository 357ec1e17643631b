// @title           LiteDrive API
// @version         1.0
// @description     Personal cloud storage: uploads with previews and per-user quotas.
// @host            localhost:8080
// @schemes         http https
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	_ "lite-drive/docs"
)

type Options struct {
	ConfigPath string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "path to the settings file (default ./configs/settings.yml)")
}

func main() {
	opts := &Options{}

	root := &cobra.Command{
		Use:          "server",
		Short:        "LiteDrive personal cloud storage",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	opts.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newGrantAdminCommand(opts),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
