package main

import (
	"github.com/spf13/cobra"

	"github.com/shotline/propstore/internal/store"
)

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <table> <from-source> <to-source>",
		Short: "Copy every set property from one source onto another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, from, to := args[0], args[1], args[2]

			reg, st, err := openStore()
			if err != nil {
				return err
			}
			defer reg.EvictAll()

			clip := store.NewClipboard()
			set, err := clip.Copy(st, table, from)
			if err != nil {
				return err
			}
			if err := clip.Paste(st, table, to); err != nil {
				return err
			}
			cmd.Printf("copied %d properties\n", len(set))
			return nil
		},
	}
}
