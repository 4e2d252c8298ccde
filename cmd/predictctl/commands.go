package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"blendpredict/internal/adapters/secondary/ensemble"
	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/services"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "predictctl",
		Short:         "Offline scoring and inspection of stacked regression bundles",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newScoreCmd())
	root.AddCommand(newInspectCmd())
	return root
}

// =============================================================================
// score
// =============================================================================

func newScoreCmd() *cobra.Command {
	var (
		bundlePath string
		inputPath  string
		outputPath string
		idColumn   string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a CSV file and write the predictions as CSV",
		Example: `  predictctl score --bundle models/model_pipeline.json --input test.csv
  predictctl score --bundle b.json --input test.csv --output predictions.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			artifacts, err := ensemble.LoadBundle(bundlePath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			engine := services.NewInferenceEngine(artifacts)
			res, err := services.Score(cmd.Context(), engine, idColumn, data)
			if err != nil {
				return err
			}
			out, err := services.Serialize(res)
			if err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"input": inputPath,
				"rows":  res.NumRows(),
			}).Debug("scored input")

			if outputPath == "" || outputPath == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return os.WriteFile(outputPath, out, 0o644)
		},
	}
	cmd.Flags().StringVar(&bundlePath, "bundle", "models/model_pipeline.json", "Path to the model bundle")
	cmd.Flags().StringVar(&inputPath, "input", "", "CSV file to score")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&idColumn, "id-column", "ID", "Identifier column copied to the output")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// =============================================================================
// inspect
// =============================================================================

type bundleSummary struct {
	Features     []string `json:"features,omitempty"`
	FeatureCount int      `json:"feature_count"`
	Contract     string   `json:"contract_version,omitempty"`
	Targets      int      `json:"targets"`
	BaseLearners []string `json:"base_learners"`
	Outputs      []string `json:"outputs"`
}

func newInspectCmd() *cobra.Command {
	var (
		bundlePath string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate a model bundle and print its contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			artifacts, err := ensemble.LoadBundle(bundlePath)
			if err != nil {
				return err
			}
			s := bundleSummary{
				Features:     artifacts.Contract.Columns,
				FeatureCount: artifacts.Contract.Width(),
				Contract:     artifacts.Contract.Version,
				Targets:      artifacts.Targets,
			}
			for _, b := range artifacts.Base {
				s.BaseLearners = append(s.BaseLearners, b.Name)
			}
			for j := 0; j < artifacts.Targets; j++ {
				s.Outputs = append(s.Outputs, domain.OutputColumnName(j))
			}
			return printSummary(cmd.OutOrStdout(), s, asJSON)
		},
	}
	cmd.Flags().StringVar(&bundlePath, "bundle", "models/model_pipeline.json", "Path to the model bundle")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printSummary(w io.Writer, s bundleSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintf(w, "Contract:       %s\n", s.Contract)
	fmt.Fprintf(w, "Features (%d):  %v\n", s.FeatureCount, s.Features)
	fmt.Fprintf(w, "Base learners:  %v\n", s.BaseLearners)
	fmt.Fprintf(w, "Targets (%d):   %v\n", s.Targets, s.Outputs)
	return nil
}
