package model

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
)

// #region registry
var topologies = map[string]Topology{
	"george_SAE": {
		Name:       "george_SAE",
		Hidden:     []int{200, 100, 50},
		Activation: ActLeakyReLU,
	},
	"george_SAE_small": {
		Name:       "george_SAE_small",
		Hidden:     []int{32},
		Activation: ActLeakyReLU,
	},
	"linear_AE": {
		Name:       "linear_AE",
		Hidden:     nil,
		Activation: ActIdentity,
	},
}

// Lookup returns the topology registered under name.
func Lookup(name string) (Topology, bool) {
	t, ok := topologies[name]
	return t, ok
}

// Names lists the registered topologies, sorted.
func Names() []string {
	names := make([]string, 0, len(topologies))
	for n := range topologies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// #endregion registry

// #region constructor
// New builds a freshly initialized autoencoder for arch. Initialization is
// deterministic for a given seed.
func New(arch Arch, seed int64) (Autoencoder, error) {
	topo, ok := Lookup(arch.Name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q (known: %v)", arch.Name, Names())
	}
	if arch.NFeatures < 1 || arch.ZDim < 1 {
		return nil, faults.ConfigMismatch(faults.StageModel, "model %s needs n_features >= 1 and z_dim >= 1, got %d and %d", arch.Name, arch.NFeatures, arch.ZDim)
	}
	return newDense(arch, topo, seed), nil
}

// #endregion constructor
