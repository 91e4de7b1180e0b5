package main

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the store's identity row and health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, st, err := openStore()
			if err != nil {
				return err
			}
			defer reg.EvictAll()

			info, err := st.ItemInfo()
			if err != nil {
				return err
			}
			out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("render info: %w", err)
			}
			cmd.Println(string(out))
			cmd.Printf("engine:     %s\n", st.EngineVersion())
			cmd.Printf("persistent: %v\n", st.Valid())
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the item's store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, st, err := openStore()
			if err != nil {
				return err
			}
			defer reg.EvictAll()

			if st.Valid() {
				cmd.Printf("store ready at %s\n", st.Source())
			} else {
				cmd.Println("store running in-memory; on-disk path unavailable")
			}
			return nil
		},
	}
}
