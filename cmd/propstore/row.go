package main

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

func newRowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "row <source> <table>",
		Short: "Read a source's full property row as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, st, err := openStore()
			if err != nil {
				return err
			}
			defer reg.EvictAll()

			row, err := st.Row(args[0], args[1])
			if err != nil {
				return err
			}
			out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(row, "", "  ")
			if err != nil {
				return fmt.Errorf("render row: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}
}
