package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/danielpatrickdp/baler/go-codec/internal/eval"
	"github.com/danielpatrickdp/baler/go-codec/internal/pipeline"
	"github.com/danielpatrickdp/baler/go-codec/internal/plot"
	"github.com/danielpatrickdp/baler/go-codec/internal/train"
	"github.com/spf13/cobra"
)

// #region new-project
func newProjectCmd(opts *options) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "new-project",
		Short: "Create the project layout and a default config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := pipeline.NewProject(opts.project, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created project %s\n  config: %s\n", proj.Root, proj.ConfigPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input CSV recorded as input_path")
	return cmd
}

// #endregion new-project

// #region derive
func deriveCmd(opts *options) *cobra.Command {
	var noPlot bool
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Train a model on input_path and store it as the active version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			rc, err := s.runContext("derive", nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			res, err := pipeline.Derive(ctx, s.proj, s.cfg, s.store, rc)
			if err != nil {
				return err
			}
			if !noPlot {
				if err := plot.SaveLossCurves(res.Train.Log, s.proj.LossPlot(), false); err != nil {
					s.logger.Warn("loss plot not written", "err", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %s: %d epochs, best val loss %.6g\n",
				res.Version.VersionID, len(res.Train.Log), res.Train.State.BestLoss)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip writing the loss plot")
	return cmd
}

// #endregion derive

// #region compress
func compressCmd(opts *options) *cobra.Command {
	var input, version string
	cmd := &cobra.Command{
		Use:   "compress",
		Short: "Encode a dataset with a stored model version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			rc, err := s.runContext("compress", nil)
			if err != nil {
				return err
			}
			if input == "" {
				input = s.cfg.InputPath
			}
			a, err := pipeline.Compress(s.proj, input, version, s.cfg, s.store, rc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compressed %d rows %d -> %d features with version %s\n  %s\n",
				a.Rows(), a.NFeatures, a.ZDim, a.ModelVersion, s.proj.ArtifactPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "CSV to compress (default input_path)")
	cmd.Flags().StringVar(&version, "version", "", "model version (default the active one)")
	return cmd
}

// #endregion compress

// #region decompress
func decompressCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "decompress",
		Short: "Decode the project artifact back to CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			rc, err := s.runContext("decompress", nil)
			if err != nil {
				return err
			}
			ds, err := pipeline.Decompress(s.proj, s.cfg, s.store, rc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "decompressed %d rows x %d columns\n  %s\n",
				ds.NumRows(), ds.NumCols(), s.proj.DecompressedPath())
			return nil
		},
	}
}

// #endregion decompress

// #region evaluate
func evaluateCmd(opts *options) *cobra.Command {
	var input string
	ec := eval.DefaultEvalConfig()
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compare the decompressed output with the original input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			rc, err := s.runContext("evaluate", nil)
			if err != nil {
				return err
			}
			if input == "" {
				input = s.cfg.InputPath
			}
			res, err := pipeline.Evaluate(s.proj, input, ec, s.cfg, s.store, rc)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range res.Metrics {
				fmt.Fprintf(out, "%-20s %12.6g  pass=%t\n", m.Name, m.Value, m.Pass)
			}
			if !res.Passed {
				return fmt.Errorf("evaluation failed: %s", res.Reason)
			}
			fmt.Fprintln(out, "evaluation passed")
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "original CSV (default input_path)")
	cmd.Flags().Float64Var(&ec.MaxNRMSE, "max-nrmse", ec.MaxNRMSE, "largest acceptable range-normalized RMSE")
	cmd.Flags().Float64Var(&ec.MaxMeanRelError, "max-rel-error", ec.MaxMeanRelError, "largest acceptable mean relative error")
	return cmd
}

// #endregion evaluate

// #region plot
func plotCmd(opts *options) *cobra.Command {
	var logY bool
	var output string
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render the training and validation loss curves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj := pipeline.Project{Root: opts.project}
			log, err := train.LoadCSV(proj.LossCSV())
			if err != nil {
				return err
			}
			if output == "" {
				output = proj.LossPlot()
			}
			if err := plot.SaveLossCurves(log, output, logY); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&logY, "log", false, "logarithmic loss axis")
	cmd.Flags().StringVarP(&output, "output", "o", "", "image path (default plotting/loss.png)")
	return cmd
}

// #endregion plot
