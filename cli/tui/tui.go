package tui

import (
	"fmt"
	"slices"
)

// View types with a TUI.
const (
	ViewReports = "reports"
	ViewReport  = "report"
)

// Run starts the TUI for viewType.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	reports, err := reportsFrom(data)
	if err != nil {
		return err
	}
	return RunReportsTUI(reports)
}

// IsTUISupported returns true if the view type supports TUI mode.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewReports, ViewReport}
}
