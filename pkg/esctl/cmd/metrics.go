package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewMetricsCommand prints the engine's current metric values.
func NewMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show current engine metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			api, err := buildClient(rt)
			if err != nil {
				return err
			}

			snapshot, err := api.Metrics(cmd.Context())
			if err != nil {
				return err
			}

			writer := rt.Writer()
			switch rt.OutputFormat() {
			case "json":
				encoder := json.NewEncoder(writer)
				encoder.SetIndent("", "  ")
				return encoder.Encode(snapshot.Metrics)
			case "yaml":
				data, err := yaml.Marshal(snapshot.Metrics)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprint(writer, string(data))
				return nil
			default:
				names := make([]string, 0, len(snapshot.Metrics))
				for name := range snapshot.Metrics {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					_, _ = fmt.Fprintf(writer, "%s\t%g\n", name, snapshot.Metrics[name])
				}
				return nil
			}
		},
	}
}
