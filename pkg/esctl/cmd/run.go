package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewRunCommand triggers one scan cycle and prints its summary.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Trigger one escalation scan cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			api, err := buildClient(rt)
			if err != nil {
				return err
			}

			result, err := api.TriggerRun(cmd.Context())
			if err != nil {
				return err
			}

			writer := rt.Writer()
			switch rt.OutputFormat() {
			case "json":
				encoder := json.NewEncoder(writer)
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			case "yaml":
				data, err := yaml.Marshal(result)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprint(writer, string(data))
				return nil
			default:
				_, _ = fmt.Fprintf(writer, "checked %d instance(s): %d escalated, %d reminded (%.2fs)\n",
					result.TotalChecked, result.Escalated, result.Reminded, result.DurationSeconds)
				return nil
			}
		},
	}
}
