package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/remaimber-it/autograde/internal/app"
	"github.com/remaimber-it/autograde/internal/grading"
	"github.com/remaimber-it/autograde/internal/infrastructure/config"
	"github.com/remaimber-it/autograde/internal/infrastructure/logging"
)

// engineLoader builds the engine and a cleanup func from the environment.
type engineLoader func(ctx context.Context, verbose bool) (*grading.Engine, func(), error)

func loadEngine(ctx context.Context, verbose bool) (*grading.Engine, func(), error) {
	_ = godotenv.Load()
	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(os.Stderr, "text", level)
	if err != nil {
		return nil, nil, err
	}

	engine, closer, err := app.BuildEngine(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return engine, func() { closer.Close() }, nil
}

type gradeFlags struct {
	student  string
	expected string
	maxScore int
	mode     string
	question string
	rubric   string
	asJSON   bool
	verbose  bool
}

func newRootCmd(load engineLoader) *cobra.Command {
	var f gradeFlags

	root := &cobra.Command{
		Use:          "quickgrade",
		Short:        "Grade one student answer against the expected answer",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := grading.ParseMode(f.mode)
			if err != nil {
				return err
			}

			engine, done, err := load(cmd.Context(), f.verbose)
			if err != nil {
				return err
			}
			defer done()

			res, err := engine.Grade(cmd.Context(), grading.Request{
				StudentAnswer:  f.student,
				ExpectedAnswer: f.expected,
				MaxScore:       f.maxScore,
				Mode:           mode,
				Question:       f.question,
				Rubric:         f.rubric,
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, f.asJSON)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&f.student, "student", "s", "", "student answer")
	flags.StringVarP(&f.expected, "expected", "e", "", "expected answer")
	flags.IntVarP(&f.maxScore, "max-score", "m", 10, "maximum score")
	flags.StringVar(&f.mode, "mode", string(grading.ModeSemantic), "grading mode: exact, keyword, semantic, numeric, manual")
	flags.StringVarP(&f.question, "question", "q", "", "question text, shown to the AI judge")
	flags.StringVar(&f.rubric, "rubric", "", "extra grading rules for the AI judge")
	flags.BoolVar(&f.asJSON, "json", false, "print the result as JSON")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "log backend activity to stderr")
	_ = root.MarkFlagRequired("student")
	_ = root.MarkFlagRequired("expected")

	root.AddCommand(newSimilarityCmd(load, &f.verbose))
	return root
}

func newSimilarityCmd(load engineLoader, verbose *bool) *cobra.Command {
	var (
		answer   string
		previous []string
	)

	cmd := &cobra.Command{
		Use:   "similarity",
		Short: "Report how close an answer is to the most similar previous answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, done, err := load(cmd.Context(), *verbose)
			if err != nil {
				return err
			}
			defer done()

			sim := engine.MaxSimilarity(cmd.Context(), answer, previous)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", sim)
			return err
		},
	}
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "answer to check")
	cmd.Flags().StringArrayVarP(&previous, "previous", "p", nil, "earlier answer (repeatable)")
	_ = cmd.MarkFlagRequired("answer")
	return cmd
}

func printResult(w io.Writer, res grading.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprintf(w, "%s\norigin: %s, band: %s\n", res, res.Origin, res.Band())
	return err
}
