package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"drumpractice/midiin"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Inputs:")
		for _, name := range midiin.Ports() {
			fmt.Println("  " + name)
		}
		fmt.Println("Outputs:")
		for _, name := range midiin.OutPorts() {
			fmt.Println("  " + name)
		}
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
