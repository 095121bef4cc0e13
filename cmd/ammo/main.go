// cmd/ammo is the load-test ammo generator built with Cobra.
//
// Usage:
//
//	ammo puts_unique 1000 --host localhost:8080 > puts.ammo
//	ammo gets_existing 1000 --host localhost:8080 > gets.ammo
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"okkv/internal/ammo"
)

var host string

func main() {
	root := &cobra.Command{
		Use:   "ammo",
		Short: "Generate synthetic HTTP ammo for the entity API",
	}
	root.PersistentFlags().StringVar(&host, "host", "localhost:8080",
		"Host header value stamped on generated requests")

	root.AddCommand(
		modeCmd(ammo.PutsUnique),
		modeCmd(ammo.PutsOverwrite),
		modeCmd(ammo.GetsExisting),
		modeCmd(ammo.GetsLatest),
		modeCmd(ammo.Mixed),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func modeCmd(mode ammo.Mode) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode) + " <count>",
		Short: "Emit ammo in " + string(mode) + " mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("count must be an integer: %w", err)
			}
			g := ammo.NewGenerator(host, os.Stdout)
			return g.Generate(mode, count)
		},
	}
}
