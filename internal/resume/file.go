package resume

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spigell/cv-screener/internal/screening"
)

// File is the on-disk candidates document written by the parse command.
type File struct {
	Candidates []screening.Resume `yaml:"candidates"`
}

// Load reads a candidates file.
func Load(path string) ([]screening.Resume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode candidates file %q: %w", path, err)
	}
	if len(f.Candidates) == 0 {
		return nil, errors.New("candidates file has no candidates")
	}
	return f.Candidates, nil
}

// Save writes resumes as a candidates file.
func Save(path string, resumes []screening.Resume) error {
	data, err := yaml.Marshal(File{Candidates: resumes})
	if err != nil {
		return fmt.Errorf("encode candidates file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write candidates file: %w", err)
	}
	return nil
}
