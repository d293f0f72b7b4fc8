package store

import (
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/model"
)

// #region version-record
// VersionRecord describes one persisted model version. The architecture is
// stored explicitly and never inferred from the weight shapes.
type VersionRecord struct {
	VersionID  string
	ParentID   string
	Arch       model.Arch
	Shapes     []TensorShape
	ConfigJSON string
	CreatedAt  time.Time
	Active     bool
}

// TensorShape is the persisted layout of one parameter block.
type TensorShape struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// #endregion version-record
