package main

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/shotline/propstore/internal/schema"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <source> <table> <column> <value>",
		Short: "Write one value",
		Long: "Write one value. The literal is parsed per the column's declared\n" +
			"type: integers and floats as decimal, structured columns as JSON,\n" +
			"text verbatim.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, table, column, literal := args[0], args[1], args[2], args[3]

			col, err := schema.Lookup(table, column)
			if err != nil {
				return err
			}
			value, err := parseLiteral(col, literal)
			if err != nil {
				return err
			}

			reg, st, err := openStore()
			if err != nil {
				return err
			}
			defer reg.EvictAll()

			return st.SetValue(source, column, value, table)
		},
	}
}

// parseLiteral converts the CLI argument into the column's semantic type.
func parseLiteral(col schema.Column, literal string) (any, error) {
	switch col.Semantic {
	case schema.Integer:
		n, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s wants an integer: %w", col.Name, err)
		}
		return n, nil
	case schema.Float:
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return nil, fmt.Errorf("%s wants a float: %w", col.Name, err)
		}
		return f, nil
	case schema.StructuredMap:
		var m map[string]any
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(literal, &m); err != nil {
			return nil, fmt.Errorf("%s wants a JSON object: %w", col.Name, err)
		}
		return m, nil
	default:
		return literal, nil
	}
}
