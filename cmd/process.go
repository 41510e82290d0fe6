package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gulfshield/claims-engine/internal/license"
	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/normalize"
)

var (
	processModule        string
	processFormat        string
	processLicenseParams string
	processNoStore       bool
)

var processCmd = &cobra.Command{
	Use:   "process <claim-file>",
	Short: "Decide a single claim from an XML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mod := model.Module(processModule)
		if !mod.Valid() {
			return eris.Errorf("invalid --module %q, want tp or co", processModule)
		}

		format := normalize.Format(processFormat)
		switch format {
		case normalize.FormatJSON, normalize.FormatXML, normalize.FormatAuto:
		default:
			return eris.Errorf("invalid --format %q, want json, xml, or auto", processFormat)
		}

		payload, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read claim file")
		}

		var opts []normalize.Option
		if processLicenseParams != "" {
			params, err := license.ReadParams(processLicenseParams)
			if err != nil {
				return err
			}
			opts = append(opts, normalize.WithLicenseParams(params))
		}

		rec, err := normalize.Normalize(payload, format, opts...)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, !processNoStore)
		if err != nil {
			return err
		}
		defer e.Close()

		proc, ok := e.Processors[mod]
		if !ok {
			return eris.Errorf("module %s has no rule file configured", mod)
		}

		report, err := proc.Process(ctx, rec)
		if err != nil {
			return err
		}

		outFormat := format
		if outFormat == normalize.FormatAuto {
			outFormat = normalize.FormatJSON
		}
		out, err := normalize.SerializeReport(report, outFormat)
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processModule, "module", "", "claim module: tp or co (required)")
	processCmd.Flags().StringVar(&processFormat, "format", "auto", "payload format: json, xml, or auto")
	processCmd.Flags().StringVar(&processLicenseParams, "license-params", "", "xlsx workbook with supplementary license details")
	processCmd.Flags().BoolVar(&processNoStore, "no-store", false, "skip recording the decision trail")
	processCmd.MarkFlagRequired("module")
	rootCmd.AddCommand(processCmd)
}
