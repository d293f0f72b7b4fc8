package model

import "gonum.org/v1/gonum/mat"

// #region arch
// Arch identifies a topology and the two widths fixed at construction.
// It is persisted explicitly next to the weights.
type Arch struct {
	Name      string `json:"model_name"`
	NFeatures int    `json:"n_features"`
	ZDim      int    `json:"z_dim"`
}

// #endregion arch

// #region regularization
// Regularization selects the loss terms added to the reconstruction error.
type Regularization struct {
	L1       bool    // add RegParam * mean |activation| over hidden layers
	RegParam float64 // weight of the sparsity penalty
	RHO      float64 // sparsity target; carried for topologies that use a KL penalty
}

// #endregion regularization

// #region loss
// Loss is the objective split into the reconstruction error and the
// regularization penalty. Penalty is zero when no regularizer is active.
type Loss struct {
	MSE     float64
	Penalty float64
}

// Total is the value that is minimized.
func (l Loss) Total() float64 { return l.MSE + l.Penalty }

// #endregion loss

// #region tensor
// Tensor is a named, row-major parameter block used for persistence.
type Tensor struct {
	Name string
	Rows int
	Cols int
	Data []float64
}

// #endregion tensor

// #region autoencoder
// Autoencoder is the capability the pipeline needs from a network. The
// training loop and the compression engine depend on nothing else.
type Autoencoder interface {
	Arch() Arch
	// Forward reconstructs x (rows x NFeatures).
	Forward(x *mat.Dense) (*mat.Dense, error)
	// Encode maps rows x NFeatures to rows x ZDim.
	Encode(x *mat.Dense) (*mat.Dense, error)
	// Decode maps rows x ZDim to rows x NFeatures.
	Decode(z *mat.Dense) (*mat.Dense, error)
	// Loss evaluates the regularized reconstruction loss without updating parameters.
	Loss(x *mat.Dense, reg Regularization) (Loss, error)
	// TrainStep evaluates the loss on x and applies one optimizer step at rate lr.
	// Parameters are left untouched when the total loss is not finite.
	TrainStep(x *mat.Dense, reg Regularization, lr float64) (Loss, error)
	ParameterCount() int
	Weights() []Tensor
	SetWeights(ws []Tensor) error
}

// #endregion autoencoder

// #region topology
// Activation names the nonlinearity of hidden layers.
type Activation string

const (
	ActLeakyReLU Activation = "leaky_relu"
	ActTanh      Activation = "tanh"
	ActIdentity  Activation = "identity"
)

// Topology describes a symmetric dense autoencoder: the encoder goes through
// Hidden then to the latent layer, the decoder mirrors it.
type Topology struct {
	Name       string
	Hidden     []int
	Activation Activation
}

// #endregion topology
