package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"scrub/internal/queue"
	"scrub/internal/tui"
)

var (
	cleanOutputDir string
	cleanZip       bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean [flags] <path>...",
	Short: "Strip EXIF/XMP/GPS metadata by re-encoding images",
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

		model := tui.NewModel(updates, true)
		program := tea.NewProgram(model)

		uiDone := make(chan struct{})
		go func() {
			_, _ = program.Run()
			close(uiDone)
		}()

		res := q.AddFiles(files)
		q.WaitIdle()

		summary := q.CleanAll(context.Background(), nil)

		close(updates)
		<-uiDone

		for _, rej := range res.Rejected {
			fmt.Fprintf(os.Stderr, "%s: %v\n", rej.Name, rej.Reason)
		}

		var written []string
		if cleanZip {
			archive := filepath.Join(cleanOutputDir, queue.ArchiveName)
			n, err := q.WriteArchive(archive)
			if err != nil {
				return err
			}
			if n > 0 {
				written = append(written, archive)
			}
		} else {
			for _, img := range q.Snapshot() {
				path, err := q.WriteCleaned(img.ID, cleanOutputDir)
				if err != nil {
					return err
				}
				if path != "" {
					written = append(written, path)
				}
			}
		}

		var threats int
		var bytesSaved int64
		for _, img := range q.Snapshot() {
			if img.Report != nil {
				threats += len(img.Report.Threats)
			}
			if img.State == queue.StateCleaned {
				bytesSaved += img.Source.Size() - img.CleanedSize
			}
			if img.State == queue.StateError {
				fmt.Fprintf(os.Stderr, "%s: %s\n", img.Source.Name, img.ErrMsg)
			}
		}

		rows := []tui.SummaryRow{
			{Label: "Files processed", Value: fmt.Sprintf("%d", summary.Total)},
			{Label: "Cleaned", Value: fmt.Sprintf("%d", summary.Cleaned)},
			{Label: "Failed", Value: fmt.Sprintf("%d", summary.Failed)},
			{Label: "Threats removed", Value: fmt.Sprintf("%d", threats)},
			{Label: "Space saved (bytes)", Value: fmt.Sprintf("%d", bytesSaved)},
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary("scrub results", rows))

		if summary.Cleaned > 0 {
			outPath := cleanOutputDir
			if abs, absErr := filepath.Abs(cleanOutputDir); absErr == nil {
				outPath = abs
			}
			fmt.Fprintf(os.Stdout, "Cleaned files written to: %s\n", outPath)
			if len(written) == 1 && cleanZip {
				fmt.Fprintf(os.Stdout, "Archive: %s\n", written[0])
			}
			fmt.Fprintln(os.Stdout, "Note: originals are never modified.")
		}

		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanOutputDir, "output", "o", "cleaned", "destination folder for cleaned copies")
	cleanCmd.Flags().BoolVar(&cleanZip, "zip", false, "bundle all cleaned files into a single archive")

	rootCmd.AddCommand(cleanCmd)
}
