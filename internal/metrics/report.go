package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ReportSection is one titled block of a diagnostic report.
type ReportSection struct {
	Title string
	Lines []string
}

// WriteReport renders a plain-text diagnostic report. Callers assemble the
// sections (status, config, recent errors); this keeps the formatting in
// one place.
func WriteReport(w io.Writer, sections []ReportSection) error {
	if _, err := fmt.Fprintf(w, "DAoC Sprint Manager diagnostic report\nGenerated: %s\n\n",
		time.Now().Format("2006-01-02 15:04:05")); err != nil {
		return err
	}

	for _, section := range sections {
		if _, err := fmt.Fprintf(w, "=== %s ===\n", section.Title); err != nil {
			return err
		}
		for _, line := range section.Lines {
			if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// SaveReport writes a diagnostic report to a timestamped file under dir and
// returns its path.
func SaveReport(dir string, sections []ReportSection) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("diagnostic_%s.txt", time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := WriteReport(f, sections); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// StatsSection formats a Stats snapshot as a report section.
func StatsSection(stats Stats) ReportSection {
	return ReportSection{
		Title: "Performance",
		Lines: []string{
			fmt.Sprintf("Session started: %s", stats.SessionStarted.Format("2006-01-02 15:04:05")),
			fmt.Sprintf("Cycles: %d", stats.Cycles),
			fmt.Sprintf("Last cycle: %v", stats.LastCycle),
			fmt.Sprintf("Avg cycle: %v", stats.AvgCycle),
			fmt.Sprintf("Max cycle: %v", stats.MaxCycle),
			fmt.Sprintf("Errors: %d", stats.Errors),
			fmt.Sprintf("Presses: %d  Releases: %d", stats.Presses, stats.Releases),
			fmt.Sprintf("State changes: %d", stats.StateChanges),
		},
	}
}

// ErrorsSection formats recent store errors as a report section.
func ErrorsSection(entries []ErrorEntry) ReportSection {
	section := ReportSection{Title: "Recent errors"}
	if len(entries) == 0 {
		section.Lines = []string{"none"}
		return section
	}
	for _, e := range entries {
		section.Lines = append(section.Lines,
			fmt.Sprintf("%s [%s] %s", e.At.Format("2006-01-02 15:04:05"), e.Kind, e.Message))
	}
	return section
}
