package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"scrub/internal/extract"
	"scrub/internal/queue"
	"scrub/internal/tui"
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Report privacy metadata without modifying files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, refused, err := collectFiles(args)
		if err != nil {
			return err
		}
		for _, msg := range refused {
			fmt.Fprintln(os.Stderr, msg)
		}

		updates := make(chan queue.ProgressUpdate, 64)
		q := queue.New(newGate(), newLogger(), updates)

		model := tui.NewModel(updates, false)
		program := tea.NewProgram(model)

		uiDone := make(chan struct{})
		go func() {
			_, _ = program.Run()
			close(uiDone)
		}()

		res := q.AddFiles(files)
		q.WaitIdle()
		close(updates)
		<-uiDone

		for _, rej := range res.Rejected {
			fmt.Fprintf(os.Stderr, "%s: %v\n", rej.Name, rej.Reason)
		}

		for i, img := range q.Snapshot() {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			renderReport(img)
		}

		return nil
	},
}

func renderReport(img queue.TrackedImage) {
	header := img.Source.Name
	if img.Report != nil {
		header += "  " + levelStyle(img.Report.Level()).Render("["+img.Report.Level().String()+"]")
	}
	fmt.Fprintf(os.Stdout, "%s\n", scanFileStyle.Render(header))

	if img.Report == nil || len(img.Report.Threats) == 0 {
		fmt.Fprintf(os.Stdout, "  %s %s\n",
			scanBulletStyle.Render("-"),
			scanDimStyle.Render("no privacy metadata found"),
		)
		return
	}

	for _, threat := range img.Report.Threats {
		fmt.Fprintf(os.Stdout, "  %s %s %s\n",
			scanBulletStyle.Render("-"),
			severityStyle(threat.Severity).Render(threat.Label+":"),
			scanValueStyle.Render(threat.Display),
		)
	}
}

func levelStyle(level extract.Level) lipgloss.Style {
	switch level {
	case extract.LevelCritical:
		return lipgloss.NewStyle().Foreground(tui.ColorDanger)
	case extract.LevelWarning:
		return lipgloss.NewStyle().Foreground(tui.ColorWarn)
	default:
		return lipgloss.NewStyle().Foreground(tui.ColorSuccess)
	}
}

func severityStyle(sev extract.Severity) lipgloss.Style {
	switch sev {
	case extract.SeverityCritical:
		return lipgloss.NewStyle().Foreground(tui.ColorDanger)
	case extract.SeverityWarning:
		return lipgloss.NewStyle().Foreground(tui.ColorWarn)
	default:
		return lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	}
}

var (
	scanFileStyle   = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	scanValueStyle  = lipgloss.NewStyle().Foreground(tui.ColorInk)
	scanDimStyle    = lipgloss.NewStyle().Foreground(tui.ColorDim)
	scanBulletStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	rootCmd.AddCommand(scanCmd)
}
