package main

import (
	"github.com/einride/servicestatus-go/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	cfgFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "servicestatus",
		Short:         "A registry of named service statuses driven by supervision tree programs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "",
		"config file (YAML); SERVICESTATUS_* environment variables override it")
	cmd.AddCommand(newRunCommand(opts), newValidateCommand())
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.cfgFile)
}
