package cmd

import (
	"fmt"
	"strings"

	"github.com/canable/canport"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(adaptersCmd)
}

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "list supported adapters",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for i, adapter := range canport.ListAdapters() {
			fmt.Printf("#%d %s\n", i, adapter.String())
			fmt.Println(adapter.Capabilities.String())
			fmt.Println(strings.Repeat("-", 30))
		}
	},
}
