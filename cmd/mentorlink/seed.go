package main

import (
	"context"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the seed data into empty collections and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.close()
		return rt.service.Bootstrap(ctx)
	},
}
