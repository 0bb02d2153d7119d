package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/canable/canport"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor [id...]",
	Short: "print received frames, optionally filtered by identifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		var ids []uint32
		for _, a := range args {
			id, err := parseID(a)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		c, err := initCAN(cmd)
		if err != nil {
			return err
		}
		defer c.Close()
		log.Printf("monitoring %s, ctrl-c to stop", c.Adapter().Name())

		g, ctx := errgroup.WithContext(cmd.Context())
		sub := c.Subscribe(ctx, ids...)
		defer sub.Close()

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case f, ok := <-sub.Chan():
					if !ok {
						return nil
					}
					fmt.Println(f.ColorString())
				}
			}
		})
		g.Go(func() error {
			return watchAdapter(ctx, c)
		})
		return g.Wait()
	},
}

// watchAdapter logs adapter events until ctx is done or the adapter reports
// an unrecoverable error.
func watchAdapter(ctx context.Context, c *canport.Client) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-c.Event():
			log.Println(evt.String())
		case err := <-c.Err():
			if canport.IsRecoverable(err) {
				log.Println(err)
				continue
			}
			return err
		}
	}
}
