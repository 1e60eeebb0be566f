// Package report generates and persists the execute-summary produced
// after a Folder Controller's execute_changes pass.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ncruces/go-strftime"
)

// Logger is the subset of svlog.Logger the generator needs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ExecuteSummary tallies one folder's execute_changes pass.
type ExecuteSummary struct {
	GeneratedAt   string `json:"generated_at"`
	FolderPath    string `json:"folder_path"`
	RunType       string `json:"run_type"` // "dry-run" or "real-run"
	Renamed       int    `json:"renamed"`
	Deleted       int    `json:"deleted"`
	ConflictsLeft int    `json:"conflicts_left"`
	BytesMoved    int64  `json:"bytes_moved"`
	Errors        []string `json:"errors,omitempty"`
}

// Generator handles generation and output of execute-summary reports.
type Generator struct {
	logger Logger
}

// NewGenerator creates a new report generator.
func NewGenerator(logger Logger) *Generator {
	return &Generator{logger: logger}
}

// GenerateReport saves summary to disk and, if printToTerminal, prints a
// human-readable rendering of it.
func (g *Generator) GenerateReport(summary *ExecuteSummary, printToTerminal bool) error {
	if summary == nil {
		return fmt.Errorf("summary is nil")
	}

	if err := g.saveReportToDisk(summary); err != nil {
		return fmt.Errorf("failed to save report to disk: %w", err)
	}

	if printToTerminal {
		g.printReportToTerminal(summary)
	}

	return nil
}

func (g *Generator) saveReportToDisk(summary *ExecuteSummary) error {
	reportsDir := "reports"
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	timestamp := strftime.Format("%Y%m%d-%H%M%S", time.Now())
	filename := fmt.Sprintf("execute-report-%s.json", timestamp)
	if summary.RunType == "dry-run" {
		filename = fmt.Sprintf("execute-report-dryrun-%s.json", timestamp)
	}

	path := filepath.Join(reportsDir, filename)

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	g.logger.Info("Report saved to: %s", path)
	return nil
}

func (g *Generator) printReportToTerminal(summary *ExecuteSummary) {
	g.logger.Info("")
	g.logger.Info("EXECUTE SUMMARY")
	g.logger.Info("==========================================")
	g.logger.Info("Generated: %s", summary.GeneratedAt)
	g.logger.Info("Folder: %s", summary.FolderPath)
	g.logger.Info("Run Type: %s", summary.RunType)
	g.logger.Info("Renamed: %d", summary.Renamed)
	g.logger.Info("Deleted: %d", summary.Deleted)
	g.logger.Info("Bytes moved: %s", humanize.Bytes(uint64(summary.BytesMoved)))

	if summary.ConflictsLeft > 0 {
		g.logger.Warn("Conflicts skipped: %d", summary.ConflictsLeft)
	}
	if len(summary.Errors) > 0 {
		g.logger.Warn("Errors encountered: %d", len(summary.Errors))
		for _, e := range summary.Errors {
			g.logger.Warn("  - %s", e)
		}
	}

	if summary.Renamed == 0 && summary.Deleted == 0 {
		g.logger.Info("No changes were executed.")
	}

	g.logger.Info("==========================================")
}
