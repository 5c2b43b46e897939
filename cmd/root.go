package cmd

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"drumpractice/config"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "drumpractice",
	Short: "Timed drum-pattern playback and practice scoring",
	Long: `drumpractice compiles declarative drum patterns into a precisely
timed playback schedule, plays them through the speaker, and scores
live pad or microphone input against the expected timeline.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "log debug output to the config dir")
}

// setupLogging keeps log noise off the terminal the TUI owns: debug
// logs go to a file, everything else stays at warning level.
func setupLogging() {
	if !debugFlag {
		log.SetLevel(log.WarnLevel)
		return
	}
	log.SetLevel(log.DebugLevel)
	dir, err := config.ConfigDir()
	if err != nil {
		return
	}
	os.MkdirAll(dir, 0755)
	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}
	log.SetOutput(f)
}
