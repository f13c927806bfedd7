// Package export renders a conversation snapshot as an Excel report.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/cv-screener/internal/screening"
)

const (
	scoresSheet     = "Scores"
	passedSheet     = "Passed"
	analyticsSheet  = "Analytics"
	transcriptSheet = "Transcript"
)

// SaveReport writes the report to path, adding the .xlsx extension when missing.
func SaveReport(path string, snap screening.Snapshot) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := WriteReport(f, snap); err != nil {
		return "", err
	}
	return path, f.Close()
}

// WriteReport renders the score board, passed set, analytics and transcript of snap.
func WriteReport(w io.Writer, snap screening.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", scoresSheet); err != nil {
		return err
	}
	for _, name := range []string{passedSheet, analyticsSheet, transcriptSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	passed := make(map[string]struct{}, len(snap.Passed))
	for _, p := range snap.Passed {
		passed[p.ID] = struct{}{}
	}

	scoreRows := make([][]any, 0, len(snap.Scores))
	for _, s := range snap.Scores {
		_, ok := passed[s.ID]
		scoreRows = append(scoreRows, []any{s.ID, s.Name, s.Email, s.Score, yesNo(ok)})
	}
	if err := writeTable(f, scoresSheet, header, []any{"File", "Name", "Email", "Score", "Passed"}, scoreRows); err != nil {
		return err
	}

	passedRows := make([][]any, 0, len(snap.Passed))
	for _, p := range snap.Passed {
		passedRows = append(passedRows, []any{p.Name, p.Email, p.Score})
	}
	if err := writeTable(f, passedSheet, header, []any{"Name", "Email", "Score"}, passedRows); err != nil {
		return err
	}

	if err := writeTable(f, analyticsSheet, header, []any{"Metric", "Value"}, analyticsRows(snap.Analytics)); err != nil {
		return err
	}

	turnRows := make([][]any, 0, len(snap.Transcript))
	for _, t := range snap.Transcript {
		turnRows = append(turnRows, []any{t.At.Format(time.RFC3339), string(t.Sender), t.Text})
	}
	if err := writeTable(f, transcriptSheet, header, []any{"Time", "Sender", "Text"}, turnRows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func analyticsRows(a *screening.AnalyticsSummary) [][]any {
	if a == nil {
		return [][]any{{"Status", "unavailable"}}
	}
	passed, failed := a.PassFailCounts()
	return [][]any{
		{"Total resumes", a.TotalResumes},
		{"Average score", a.AvgScore},
		{"Highest score", a.HighestScore},
		{"Lowest score", a.LowestScore},
		{"Pass percentage", a.PassPercentage},
		{"Passed", passed},
		{"Failed", failed},
	}
}

func writeTable(f *excelize.File, sheet string, style int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
