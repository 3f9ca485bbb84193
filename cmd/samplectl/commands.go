package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"copper-backend/internal/analyzer"
	"copper-backend/internal/risk"
)

type analyzeOutput struct {
	Image  string           `json:"image"`
	Result *analyzer.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newAnalyzeCmd() *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "analyze <image>...",
		Short: "Run the simulated analyzer on local images",
		Long: `Run the simulated analyzer on one or more PNG or JPEG files and print
one JSON object per image. A non-zero --seed makes readings repeatable.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rng *rand.Rand
			if seed != 0 {
				rng = rand.New(rand.NewPCG(uint64(seed), 0))
			}
			a := analyzer.NewSimulated(analyzer.FileSource{}, rng)
			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := 0
			for _, path := range args {
				out := analyzeOutput{Image: path}
				res, err := a.Analyze(cmd.Context(), path)
				if err != nil {
					out.Error = err.Error()
					failed++
				} else {
					out.Result = &res
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for repeatable readings")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <mg/L>",
		Short: "Print the risk label for a copper concentration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid concentration %q: %w", args[0], err)
			}
			level := risk.Classify(v)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", level, level.Badge())
			return nil
		},
	}
}
