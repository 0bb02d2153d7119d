package cmd

import (
	"fmt"

	"github.com/canable/canport"
	"github.com/spf13/cobra"
)

func init() {
	listCmd.Flags().Bool("all", false, "list every serial port, not only slcan adapters")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list connected adapters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}
		ports, err := canport.ListPorts(all)
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("no ports found")
			return nil
		}
		for _, port := range ports {
			fmt.Printf("port: %s\n", port.Name)
			if port.IsUSB {
				fmt.Printf("   USB ID      %s:%s\n", port.VID, port.PID)
				fmt.Printf("   USB serial  %s\n", port.SerialNumber)
			}
		}
		return nil
	},
}
