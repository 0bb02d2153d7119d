package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/canable/canport"
	"github.com/canable/canport/pkg/bar"
	"github.com/spf13/cobra"
)

func init() {
	replayCmd.Flags().Duration("delay", 10*time.Millisecond, "pause between frames")
	rootCmd.AddCommand(replayCmd)
}

// replayExamples appear in the help text.
var replayExamples = []string{"t07df302010c", "T18daf1103021003"}

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "send frames from a file of slcan lines",
	Long: "Each line of the file holds one frame in slcan form, for example\n" +
		strings.Join(replayExamples, " or ") + ". Empty lines and lines starting with # are skipped.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delay, err := cmd.Flags().GetDuration("delay")
		if err != nil {
			return err
		}
		fh, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fh.Close()
		frames, err := readFrames(fh)
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return fmt.Errorf("%s: no frames", args[0])
		}

		c, err := initCAN(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		pb := bar.New(len(frames), "replaying")
		for _, f := range frames {
			if err := c.Send(f); err != nil {
				return err
			}
			pb.Add(1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		fmt.Println()
		log.Printf("sent %d frames", len(frames))
		return nil
	},
}

// readFrames decodes one slcan line per input line. A trailing CR is
// tolerated so captures written with CRLF line endings replay unchanged.
func readFrames(r io.Reader) ([]*canport.CANFrame, error) {
	var frames []*canport.CANFrame
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		f, err := canport.DecodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		f.FrameType = canport.Outgoing
		frames = append(frames, f)
	}
	return frames, sc.Err()
}
