package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/studyrank/internal/domain/model"
	"github.com/okian/studyrank/internal/domain/types"
)

func rankCmd() *cobra.Command {
	var (
		weights     []string
		disciplines []string
		industries  []string
		limit       int
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:       "rank countries|universities",
		Short:     "Compute a ranking and print it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"countries", "universities"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseEntityKind(args[0])
			if err != nil {
				return err
			}
			w, err := parseWeights(weights)
			if err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}

			cfg, err := setup(cmd, os.Stderr)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			svc, err := newService(ctx, cfg, false)
			if err != nil {
				return err
			}
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer svc.Stop()

			req := types.RankingRequest{
				Weights:     w,
				Disciplines: types.CleanLabels(disciplines),
				Industries:  types.CleanLabels(industries),
				Limit:       limit,
			}
			out := cmd.OutOrStdout()

			if kind == model.KindCountry {
				rows, err := svc.CountryRankings(ctx, req)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, rows)
				}
				return writeTable(out, len(rows), func(i int) (string, types.Scores) { return rows[i].CountryName, rows[i].Scores })
			}

			rows, err := svc.UniversityRankings(ctx, req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, rows)
			}
			return writeTable(out, len(rows), func(i int) (string, types.Scores) { return rows[i].UniversityName, rows[i].Scores })
		},
	}

	cmd.Flags().StringArrayVar(&weights, "weight", nil, "group weight as <group id>=<weight>; repeatable")
	cmd.Flags().StringArrayVar(&disciplines, "discipline", nil, "selected discipline; repeatable (countries only)")
	cmd.Flags().StringArrayVar(&industries, "industry", nil, "selected industry; repeatable (countries only)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows to show (0 = up to the configured maximum)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

// parseWeights turns id=weight pairs into a weight map.
func parseWeights(pairs []string) (map[int64]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[int64]float64, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("weight %q: want <group id>=<weight>", p)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("weight %q: invalid group id", p)
		}
		wt, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || wt < 0 {
			return nil, fmt.Errorf("weight %q: want a non-negative number", p)
		}
		out[id] = wt
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, n int, row func(int) (string, types.Scores)) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tFINAL\tOVERALL\tDISCIPLINE\tINDUSTRY")
	for i := 0; i < n; i++ {
		name, s := row(i)
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\n",
			s.Rank, name, s.FinalScore, s.OverallScore, s.DisciplineScore, s.IndustryScore)
	}
	return tw.Flush()
}
