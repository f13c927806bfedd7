// Package resume turns resume PDFs into parsed payloads and stores them as a
// candidates file.
package resume

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

// ExtractText returns the plain text of a PDF document.
func ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty pdf data")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// ParseFiles parses every PDF in paths. A file that cannot be parsed is skipped and
// reported in the returned error; the others are still returned.
func ParseFiles(ctx context.Context, paths []string, logger *zap.Logger) ([]screening.Resume, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		resumes []screening.Resume
		errs    []error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return resumes, err
		}

		id := filepath.Base(path)
		payload, err := parseFile(path)
		if err != nil {
			logger.Warn("resume skipped", zap.String("file", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}

		logger.Debug("resume parsed", zap.String("file", id), zap.Any("email", payload["email"]))
		resumes = append(resumes, screening.Resume{ID: id, Payload: payload})
	}

	return resumes, errors.Join(errs...)
}

// ExpandPaths resolves directories to the PDF files they contain.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				out = append(out, filepath.Join(p, e.Name()))
			}
		}
	}
	return out, nil
}

func parseFile(path string) (screening.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := ExtractText(data)
	if err != nil {
		return nil, err
	}
	return Parse(text), nil
}
