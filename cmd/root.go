package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"scrub/internal/entitlement"
)

var (
	proFlag     bool
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "scrub",
	Short: "scrub - find and strip privacy metadata from images",
	Long:  "scrub scans images for privacy-sensitive metadata (GPS, timestamps, device identity) and produces byte-clean re-encoded copies.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().BoolVar(&proFlag, "pro", false, "treat the profile as entitled to batch processing")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

// newGate builds the entitlement gate from the external profile signal:
// the --pro flag or the SCRUB_PRO environment variable.
func newGate() *entitlement.Gate {
	return entitlement.NewGate(func() bool {
		if proFlag {
			return true
		}
		switch strings.ToLower(os.Getenv("SCRUB_PRO")) {
		case "1", "true", "yes", "on":
			return true
		}
		return false
	})
}

// newLogger writes structured diagnostics to stderr so they never mix
// with the rendered report on stdout.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verboseFlag {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
