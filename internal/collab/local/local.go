// Package local implements the screening collaborators in-process: a keyword job
// description parser, the weighted scorer, analytics and a keyword question answerer.
package local

import (
	"go.uber.org/zap"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/cv-screener/internal/logger"
)

// Backend serves every collaborator port without leaving the process.
type Backend struct {
	logger *zap.Logger
}

func New(log *zap.Logger) *Backend {
	return &Backend{
		logger: logger.ForCollaborator(log, "local"),
	}
}

// decode maps a loosely typed payload into out. Single values are accepted where lists
// are expected and nulls are skipped.
func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
