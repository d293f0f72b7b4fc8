package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/danielpatrickdp/baler/go-codec/internal/config"
	"github.com/danielpatrickdp/baler/go-codec/internal/logging"
	"github.com/danielpatrickdp/baler/go-codec/internal/metrics"
	"github.com/danielpatrickdp/baler/go-codec/internal/pipeline"
	"github.com/danielpatrickdp/baler/go-codec/internal/store"
	"github.com/spf13/cobra"
)

// #region options
// options holds the persistent flags shared by every subcommand.
type options struct {
	project  string
	logLevel string
	logJSON  bool
}

// session is everything a mode needs once the project is opened.
type session struct {
	proj   pipeline.Project
	cfg    config.Training
	store  *store.Store
	logger *slog.Logger
}

func (o *options) logger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(cmd.ErrOrStderr(), level, o.logJSON), nil
}

// open loads the project config and opens its model store.
func (o *options) open(cmd *cobra.Command) (*session, error) {
	logger, err := o.logger(cmd)
	if err != nil {
		return nil, err
	}
	proj := pipeline.Project{Root: o.project}
	if _, err := os.Stat(proj.ConfigPath()); err != nil {
		return nil, fmt.Errorf("%s is not a project (run new-project first): %w", o.project, err)
	}
	cfg, err := proj.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := proj.EnsureDirs(); err != nil {
		return nil, err
	}
	st, err := store.NewStore(proj.ModelDB())
	if err != nil {
		return nil, err
	}
	return &session{proj: proj, cfg: cfg, store: st, logger: logger}, nil
}

func (s *session) runContext(mode string, m *metrics.Set) (*config.RunContext, error) {
	return config.NewRunContext(mode, s.cfg, s.logger, m)
}

func (s *session) Close() error { return s.store.Close() }

// #endregion options

// #region root
func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "baler",
		Short:         "Lossy compression of tabular data with trained autoencoders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.project, "project", "p", ".", "project directory")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "emit JSON log lines")

	root.AddCommand(
		newProjectCmd(opts),
		deriveCmd(opts),
		compressCmd(opts),
		decompressCmd(opts),
		evaluateCmd(opts),
		plotCmd(opts),
		infoCmd(opts),
		serveCmd(opts),
	)
	return root
}

// #endregion root
