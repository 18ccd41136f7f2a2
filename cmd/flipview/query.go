package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"flipview/internal/query"
	"flipview/internal/strategy"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "query KIND [key=value...]",
		Short: "Run one query and print the result",
		Long: "Runs a query against the configured store. KIND is one of " + kindList() + ".\n" +
			"Parameters are key=value pairs, e.g. entityName=\"Dragon bones\" dateFrom=01-01-2024 minProfit=1m.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			a, err := openCLIApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Engine().Execute(cmd.Context(), args[0], params)
			if err != nil && !(isNoData(err) && res != nil) {
				return err
			}
			if werr := writeResult(cmd.OutOrStdout(), res, output); werr != nil {
				return werr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("parameter %q is not key=value", arg)
		}
		params[strings.TrimSpace(key)] = val
	}
	return params, nil
}

func writeResult(w io.Writer, res *strategy.Result, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml", "yml":
		// Round-trip through JSON so YAML keys match the API field names.
		raw, err := json.Marshal(res)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func kindList() string {
	var names []string
	for _, k := range query.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
