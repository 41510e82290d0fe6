package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := *cfg
		if redacted.Server.TPAuth.Password != "" {
			redacted.Server.TPAuth.Password = "[redacted]"
		}
		if redacted.Server.COAuth.Password != "" {
			redacted.Server.COAuth.Password = "[redacted]"
		}

		out, err := yaml.Marshal(redacted)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
