package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hrygo/automl/ai/dataset/synth"
	"github.com/hrygo/automl/ai/intent"
	"github.com/hrygo/automl/ai/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run one pipeline and print the artifact bundle as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		offline, _ := cmd.Flags().GetBool("offline")
		app, err := buildApp(p, offline)
		if err != nil {
			return err
		}

		req, err := runRequest(cmd, args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		bundle, err := app.orchestrator.Run(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), bundle)
	},
}

var synthCmd = &cobra.Command{
	Use:   "synth [domain]",
	Short: "Write a synthetic dataset to stdout as CSV",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := synthOptions(cmd)
		if err != nil {
			return err
		}
		hint := ""
		if len(args) == 1 {
			hint = args[0]
		}
		rec := synth.Synthesize(hint, opts)
		_, err = io.WriteString(cmd.OutOrStdout(), rec.CSVContent)
		return err
	},
}

func init() {
	runCmd.Flags().String("task", "", "task type override: classification, regression, clustering, time-series")
	runCmd.Flags().String("dataset", "", `catalog identifier, "owner/slug"`)
	runCmd.Flags().StringSlice("search", nil, "catalog search terms")
	runCmd.Flags().String("domain", "", "domain hint for the synthetic fallback")
	runCmd.Flags().Int("rows", 0, "synthetic row count")
	runCmd.Flags().Uint64("seed", 0, "synthetic data seed")
	runCmd.Flags().StringSlice("models", nil, "backend ids in the order to try them")
	runCmd.Flags().Bool("offline", false, "skip the dataset catalog")

	synthCmd.Flags().Int("rows", 0, "row count (domain default when zero)")
	synthCmd.Flags().Uint64("seed", 0, "random seed for reproducible output")
	synthCmd.Flags().String("task", "", "task type shaping the generic schema")
}

func runRequest(cmd *cobra.Command, prompt string) (pipeline.Request, error) {
	f := cmd.Flags()
	req := pipeline.Request{Prompt: prompt}
	req.TaskType, _ = f.GetString("task")
	req.DatasetID, _ = f.GetString("dataset")
	req.SearchTerms, _ = f.GetStringSlice("search")
	req.DomainHint, _ = f.GetString("domain")
	req.Rows, _ = f.GetInt("rows")
	req.ModelOrder, _ = f.GetStringSlice("models")
	if f.Changed("seed") {
		seed, err := f.GetUint64("seed")
		if err != nil {
			return req, err
		}
		req.Seed = &seed
	}
	return req, nil
}

func synthOptions(cmd *cobra.Command) (synth.Options, error) {
	f := cmd.Flags()
	var opts synth.Options
	opts.Rows, _ = f.GetInt("rows")
	if opts.Rows < 0 || opts.Rows > pipeline.MaxRows {
		return opts, fmt.Errorf("--rows must be between 0 and %d", pipeline.MaxRows)
	}
	if f.Changed("seed") {
		seed, _ := f.GetUint64("seed")
		opts.Seed = &seed
	}
	raw, _ := f.GetString("task")
	task, err := intent.ParseTaskType(raw)
	if err != nil {
		return opts, err
	}
	opts.TaskType = task
	return opts, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
