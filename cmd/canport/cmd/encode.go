package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/canable/canport"
	"github.com/spf13/cobra"
)

func init() {
	encodeCmd.Flags().BoolP("extended", "e", false, "29 bit identifier")
	rootCmd.AddCommand(encodeCmd)
}

var encodeCmd = &cobra.Command{
	Use:   "encode <id> [hexdata]",
	Short: "print the slcan wire form of a frame",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		extended, err := cmd.Flags().GetBool("extended")
		if err != nil {
			return err
		}
		f, err := parseFrameArgs(args, extended)
		if err != nil {
			return err
		}
		wire, err := canport.Encode(f)
		if err != nil {
			return err
		}
		fmt.Printf("%q\n", wire)
		return nil
	},
}

// hexArg accepts "0102ff", "01 02 ff" and "01:02:ff".
func hexArg(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid data %q: %w", s, err)
	}
	return data, nil
}
