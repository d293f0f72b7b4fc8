package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/logging"
	"github.com/danielpatrickdp/baler/go-codec/internal/model"
	"github.com/danielpatrickdp/baler/go-codec/internal/store"
	"github.com/danielpatrickdp/baler/go-codec/internal/train"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to a project's model/models.db")
	last := flag.Int("last", 20, "show N most recent versions or runs")
	version := flag.String("version", "", "show single version detail")
	runs := flag.Bool("runs", false, "list the run log instead of versions")
	activate := flag.String("activate", "", "make a version the active one for its model")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/models.db [--last N] [--version id] [--runs] [--activate id] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch {
	case *activate != "":
		err = st.Activate(*activate)
		if err == nil {
			fmt.Printf("activated %s\n", *activate)
		}
	case *runs:
		err = runRunsMode(st, *last, *jsonOut)
	case *version != "":
		err = runDetailMode(st, *version, *jsonOut)
	default:
		err = runListMode(st, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID  string   `json:"version_id"`
	Model      string   `json:"model"`
	NFeatures  int      `json:"n_features"`
	ZDim       int      `json:"z_dim"`
	Parameters int      `json:"parameters"`
	Epochs     int      `json:"epochs"`
	BestVal    *float64 `json:"best_val_loss,omitempty"`
	Active     bool     `json:"active"`
	CreatedAt  string   `json:"created_at"`
}

func runListMode(st *store.Store, last int, jsonOut bool) error {
	versions, err := st.ListVersions(last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}

	// store returns DESC, reverse for chronological
	rows := make([]listRow, len(versions))
	for i, v := range versions {
		r := listRow{
			VersionID:  v.VersionID,
			Model:      v.Arch.Name,
			NFeatures:  v.Arch.NFeatures,
			ZDim:       v.Arch.ZDim,
			Parameters: parameterCount(v.Shapes),
			Active:     v.Active,
			CreatedAt:  v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if log, err := st.LossLog(v.VersionID); err == nil && len(log) > 0 {
			r.Epochs = len(log)
			best := bestVal(log)
			r.BestVal = &best
		}
		rows[len(versions)-1-i] = r
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-18s  %8s  %6s  %10s  %6s  %12s  %-6s  %s\n",
		"Version", "Model", "Features", "Latent", "Params", "Epochs", "Best Val", "Active", "Time")
	for _, r := range rows {
		best := "-"
		if r.BestVal != nil {
			best = fmt.Sprintf("%.6g", *r.BestVal)
		}
		active := ""
		if r.Active {
			active = "*"
		}
		fmt.Printf("%-10s  %-18s  %8d  %6d  %10d  %6d  %12s  %-6s  %s\n",
			shortID(r.VersionID), r.Model, r.NFeatures, r.ZDim, r.Parameters, r.Epochs, best, active, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	VersionID string          `json:"version_id"`
	ParentID  string          `json:"parent_id"`
	CreatedAt string          `json:"created_at"`
	Arch      model.Arch      `json:"arch"`
	Active    bool            `json:"active"`
	Columns   []columnDetail  `json:"columns"`
	Tensors   []tensorDetail  `json:"tensors"`
	Training  *trainingDetail `json:"training,omitempty"`
}

type columnDetail struct {
	Name    string  `json:"name"`
	TrueMin float64 `json:"true_min"`
	Range   float64 `json:"range"`
}

type tensorDetail struct {
	Name string  `json:"name"`
	Rows int     `json:"rows"`
	Cols int     `json:"cols"`
	Norm float64 `json:"norm"`
}

type trainingDetail struct {
	Epochs    int     `json:"epochs"`
	BestVal   float64 `json:"best_val_loss"`
	FinalLoss float64 `json:"final_train_loss"`
	FinalMSE  float64 `json:"final_mse_loss_fit"`
	FinalL1   float64 `json:"final_l1_loss_fit"`
	FinalLR   float64 `json:"final_lr"`
}

func runDetailMode(st *store.Store, versionID string, jsonOut bool) error {
	m, rec, err := st.LoadVersion(versionID)
	if err != nil {
		return err
	}
	params, err := st.Params(rec.VersionID)
	if err != nil {
		return err
	}

	out := detailOutput{
		VersionID: rec.VersionID,
		ParentID:  rec.ParentID,
		CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Arch:      rec.Arch,
		Active:    rec.Active,
	}
	for _, c := range params.Columns {
		out.Columns = append(out.Columns, columnDetail{Name: c.Name, TrueMin: c.TrueMin, Range: c.Range})
	}
	for _, w := range m.Weights() {
		out.Tensors = append(out.Tensors, tensorDetail{Name: w.Name, Rows: w.Rows, Cols: w.Cols, Norm: l2(w.Data)})
	}
	if log, err := st.LossLog(rec.VersionID); err == nil && len(log) > 0 {
		final := log[len(log)-1]
		out.Training = &trainingDetail{
			Epochs:    len(log),
			BestVal:   bestVal(log),
			FinalLoss: final.TrainLoss,
			FinalMSE:  final.TrainMSE,
			FinalL1:   final.TrainPenalty,
			FinalLR:   final.LR,
		}
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Version:  %s\n", out.VersionID)
	fmt.Printf("Parent:   %s\n", out.ParentID)
	fmt.Printf("Created:  %s\n", out.CreatedAt)
	fmt.Printf("Model:    %s (%d -> %d)\n", out.Arch.Name, out.Arch.NFeatures, out.Arch.ZDim)
	fmt.Printf("Active:   %v\n", out.Active)

	fmt.Printf("\nNormalization:\n")
	for _, c := range out.Columns {
		fmt.Printf("  %-16s min=%-14.6g range=%.6g\n", c.Name, c.TrueMin, c.Range)
	}

	fmt.Printf("\nTensors:\n")
	for _, t := range out.Tensors {
		fmt.Printf("  %-16s %4dx%-4d norm=%.4f\n", t.Name, t.Rows, t.Cols, t.Norm)
	}

	if out.Training != nil {
		fmt.Printf("\nTraining:\n")
		fmt.Printf("  Epochs:      %d\n", out.Training.Epochs)
		fmt.Printf("  Best Val:    %.6g\n", out.Training.BestVal)
		fmt.Printf("  Final Train: %.6g (mse %.6g, l1 %.6g)\n", out.Training.FinalLoss, out.Training.FinalMSE, out.Training.FinalL1)
		fmt.Printf("  Final LR:    %.3g\n", out.Training.FinalLR)
	}
	return nil
}

// #endregion detail-mode

// #region runs-mode

func runRunsMode(st *store.Store, last int, jsonOut bool) error {
	entries, err := logging.ListRuns(st.DB(), last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}
	fmt.Printf("%-10s  %-10s  %-10s  %-7s  %-11s  %10s  %s\n",
		"Run", "Mode", "Version", "Outcome", "Stage", "Duration", "Detail")
	for _, e := range entries {
		fmt.Printf("%-10s  %-10s  %-10s  %-7s  %-11s  %10s  %s\n",
			shortID(e.RunID), e.Mode, shortID(e.VersionID), e.Outcome, e.Stage, e.Duration.Round(time.Millisecond), e.Detail)
	}
	return nil
}

// #endregion runs-mode

// #region metrics

func parameterCount(shapes []store.TensorShape) int {
	n := 0
	for _, s := range shapes {
		n += s.Rows * s.Cols
	}
	return n
}

func bestVal(log train.LossLog) float64 {
	best := math.Inf(1)
	for _, e := range log {
		best = math.Min(best, e.ValLoss)
	}
	return best
}

func l2(v []float64) float64 {
	var sum float64
	for _, f := range v {
		sum += f * f
	}
	return math.Sqrt(sum)
}

// #endregion metrics

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
