package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/store"
)

var (
	decisionsModule string
	decisionsCase   string
	decisionsLimit  int
	decisionsJSON   bool
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List recorded decisions from the audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		filter := store.DecisionFilter{
			CaseNumber: decisionsCase,
			Limit:      decisionsLimit,
		}
		if decisionsModule != "" {
			mod := model.Module(decisionsModule)
			if !mod.Valid() {
				return eris.Errorf("invalid --module %q, want tp or co", decisionsModule)
			}
			filter.Module = mod
		}

		reports, err := st.ListDecisions(ctx, filter)
		if err != nil {
			return err
		}

		if decisionsJSON {
			out, err := json.MarshalIndent(reports, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal decisions")
			}
			fmt.Println(string(out))
			return nil
		}

		for _, r := range reports {
			for _, pd := range r.Parties {
				fmt.Printf("%s  %s  %-24s party=%d liability=%5.1f  %s\n",
					r.CreatedAt.Format("2006-01-02 15:04:05"),
					r.Module, r.CaseNumber, pd.PartyIndex, pd.Liability, pd.Outcome,
				)
			}
		}
		fmt.Printf("%d decisions\n", len(reports))
		return nil
	},
}

func init() {
	decisionsCmd.Flags().StringVar(&decisionsModule, "module", "", "filter by module: tp or co")
	decisionsCmd.Flags().StringVar(&decisionsCase, "case", "", "filter by case number")
	decisionsCmd.Flags().IntVar(&decisionsLimit, "limit", 50, "maximum decisions to list")
	decisionsCmd.Flags().BoolVar(&decisionsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(decisionsCmd)
}
