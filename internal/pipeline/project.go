package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/baler/go-codec/internal/config"
)

// #region project
// Project is the on-disk layout of one compression project.
type Project struct {
	Root string
}

// ConfigPath is the project's config.yaml.
func (p Project) ConfigPath() string { return filepath.Join(p.Root, "config.yaml") }

// ModelDB is the SQLite model store.
func (p Project) ModelDB() string { return filepath.Join(p.Root, "model", "models.db") }

// ArtifactPath is where compress writes the latent artifact.
func (p Project) ArtifactPath() string {
	return filepath.Join(p.Root, "compressed_output", "compressed.blr")
}

// DecompressedPath is where decompress writes the reconstruction.
func (p Project) DecompressedPath() string {
	return filepath.Join(p.Root, "decompressed_output", "decompressed.csv")
}

// LossCSV is the per-epoch loss log written by derive.
func (p Project) LossCSV() string { return filepath.Join(p.Root, "training", "loss_data.csv") }

// LossPlot is the default loss curve image.
func (p Project) LossPlot() string { return filepath.Join(p.Root, "plotting", "loss.png") }

var projectDirs = []string{"model", "compressed_output", "decompressed_output", "training", "plotting"}

// EnsureDirs creates the project directories that are missing.
func (p Project) EnsureDirs() error {
	for _, d := range projectDirs {
		if err := os.MkdirAll(filepath.Join(p.Root, d), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// NewProject scaffolds a project directory with a default config.
// An existing config is left alone.
func NewProject(root, inputPath string) (Project, error) {
	p := Project{Root: root}
	if err := p.EnsureDirs(); err != nil {
		return Project{}, err
	}
	if _, err := os.Stat(p.ConfigPath()); err == nil {
		return p, fmt.Errorf("config %s already exists", p.ConfigPath())
	}
	if err := config.WriteDefault(p.ConfigPath(), inputPath); err != nil {
		return Project{}, err
	}
	return p, nil
}

// LoadConfig reads the project's config.yaml.
func (p Project) LoadConfig() (config.Training, error) {
	return config.Load(p.ConfigPath())
}

// #endregion project
