package train

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

var lossHeader = []string{"epoch", "train_loss", "val_loss", "lr", "mse_loss_fit", "l1_loss_fit"}

// legacyLossColumns is the width of logs written before the loss was split.
const legacyLossColumns = 4

// #region write
// WriteCSV writes the log with a header row.
func (l LossLog) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(lossHeader); err != nil {
		return fmt.Errorf("write loss header: %w", err)
	}
	for _, e := range l {
		rec := []string{
			strconv.Itoa(e.Epoch),
			strconv.FormatFloat(e.TrainLoss, 'g', -1, 64),
			strconv.FormatFloat(e.ValLoss, 'g', -1, 64),
			strconv.FormatFloat(e.LR, 'g', -1, 64),
			strconv.FormatFloat(e.TrainMSE, 'g', -1, 64),
			strconv.FormatFloat(e.TrainPenalty, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write loss row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the log to path.
func (l LossLog) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create loss log: %w", err)
	}
	if err := l.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// #endregion write

// #region read
// ReadCSV parses a log written by WriteCSV. Four-column logs without the
// loss split are accepted with TrainMSE set to TrainLoss.
func ReadCSV(r io.Reader) (LossLog, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read loss header: %w", err)
	}
	if len(header) != len(lossHeader) && len(header) != legacyLossColumns {
		return nil, fmt.Errorf("read loss header: %d columns, expected %d", len(header), len(lossHeader))
	}
	var log LossLog
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return log, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read loss row: %w", err)
		}
		var e Epoch
		if e.Epoch, err = strconv.Atoi(rec[0]); err != nil {
			return nil, fmt.Errorf("parse epoch %q: %w", rec[0], err)
		}
		vals := []*float64{&e.TrainLoss, &e.ValLoss, &e.LR, &e.TrainMSE, &e.TrainPenalty}
		for i, dst := range vals[:len(rec)-1] {
			if *dst, err = strconv.ParseFloat(rec[i+1], 64); err != nil {
				return nil, fmt.Errorf("parse %s %q: %w", lossHeader[i+1], rec[i+1], err)
			}
		}
		if len(rec) == legacyLossColumns {
			e.TrainMSE = e.TrainLoss
		}
		log = append(log, e)
	}
}

// LoadCSV reads a loss log from path.
func LoadCSV(path string) (LossLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open loss log: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// #endregion read
