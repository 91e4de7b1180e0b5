package main

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <source> <table> <column>",
		Short: "Read one stored value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, st, err := openStore()
			if err != nil {
				return err
			}
			defer reg.EvictAll()

			v, err := st.Value(args[0], args[2], args[1])
			if err != nil {
				return err
			}
			return printValue(cmd, v)
		},
	}
}

// printValue renders a decoded value: plain for scalars, JSON for
// structured maps, "<unset>" for nil.
func printValue(cmd *cobra.Command, v any) error {
	switch val := v.(type) {
	case nil:
		cmd.Println("<unset>")
	case map[string]any:
		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(val)
		if err != nil {
			return fmt.Errorf("render value: %w", err)
		}
		cmd.Println(out)
	default:
		cmd.Println(val)
	}
	return nil
}
