package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/rules"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configured module rule files",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := map[model.Module]string{
			model.ModuleTP: cfg.Modules.TPRulesPath,
			model.ModuleCO: cfg.Modules.CORulesPath,
		}

		var failed bool
		for _, mod := range model.AllModules() {
			path := paths[mod]
			if path == "" {
				fmt.Printf("%s: no rule file configured\n", mod)
				continue
			}

			rc, err := rules.Load(mod, path)
			if err != nil {
				failed = true
				fmt.Printf("%s: INVALID: %v\n", mod, err)
				continue
			}

			threshold := "disabled"
			if t, ok := rc.SubrogationThreshold(); ok {
				threshold = fmt.Sprintf("%.1f", t)
			}
			fmt.Printf("%s: ok (%d rejection, %d recovery conditions, translation=%t, subrogation threshold=%s)\n",
				mod,
				len(rc.RejectionConditions()),
				len(rc.RecoveryConditions()),
				rc.TranslationEnabled(),
				threshold,
			)
		}

		if failed {
			return fmt.Errorf("one or more rule files are invalid")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
