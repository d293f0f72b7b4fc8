package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/device"
	"github.com/danielpatrickdp/baler/go-codec/internal/logging"
	"github.com/danielpatrickdp/baler/go-codec/internal/model"
	"github.com/danielpatrickdp/baler/go-codec/internal/pipeline"
	"github.com/danielpatrickdp/baler/go-codec/internal/store"
	"github.com/spf13/cobra"
)

// #region info
func infoCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the compute device, model topologies and stored versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			requested := string(device.KindAuto)
			proj := pipeline.Project{Root: opts.project}
			cfg, cfgErr := proj.LoadConfig()
			if cfgErr == nil {
				requested = cfg.Device
			}
			dev, err := device.Resolve(requested)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "device: %s\n\n", dev)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOPOLOGY\tHIDDEN\tACTIVATION")
			for _, name := range model.Names() {
				topo, _ := model.Lookup(name)
				fmt.Fprintf(tw, "%s\t%v\t%s\n", name, topo.Hidden, topo.Activation)
			}
			tw.Flush()

			if _, err := os.Stat(proj.ModelDB()); err != nil {
				return nil
			}
			st, err := store.NewStore(proj.ModelDB())
			if err != nil {
				return err
			}
			defer st.Close()
			return printHistory(cmd, st, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "versions and runs to list")
	return cmd
}

func printHistory(cmd *cobra.Command, st *store.Store, limit int) error {
	out := cmd.OutOrStdout()
	versions, err := st.ListVersions(limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tMODEL\tFEATURES\tLATENT\tCREATED\tACTIVE")
	for _, v := range versions {
		active := ""
		if v.Active {
			active = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", v.VersionID, v.Arch.Name, v.Arch.NFeatures, v.Arch.ZDim,
			v.CreatedAt.Format("2006-01-02 15:04:05"), active)
	}
	tw.Flush()

	runs, err := logging.ListRuns(st.DB(), limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMODE\tOUTCOME\tSTAGE\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(r.RunID), r.Mode, r.Outcome, r.Stage, r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// #endregion info
