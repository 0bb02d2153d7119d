package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	sendCmd.Flags().BoolP("extended", "e", false, "29 bit identifier")
	sendCmd.Flags().Duration("wait", 0, "wait this long for a reply on --reply-id")
	sendCmd.Flags().String("reply-id", "0", "hex identifier of the expected reply")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <id> [hexdata]",
	Short: "send a single frame",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		extended, err := flags.GetBool("extended")
		if err != nil {
			return err
		}
		wait, err := flags.GetDuration("wait")
		if err != nil {
			return err
		}
		replyArg, err := flags.GetString("reply-id")
		if err != nil {
			return err
		}
		replyID, err := parseID(replyArg)
		if err != nil {
			return err
		}
		f, err := parseFrameArgs(args, extended)
		if err != nil {
			return err
		}

		c, err := initCAN(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		if wait <= 0 {
			if err := c.Send(f); err != nil {
				return err
			}
			log.Println(f.ColorString())
			return nil
		}

		sub := c.Subscribe(ctx, replyID)
		defer sub.Close()
		if err := c.Send(f); err != nil {
			return err
		}
		log.Println(f.ColorString())

		select {
		case r, ok := <-sub.Chan():
			if ok {
				log.Println(r.ColorString())
			}
		case <-time.After(wait):
			log.Printf("no reply from 0x%03X within %s", replyID, wait)
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	},
}
