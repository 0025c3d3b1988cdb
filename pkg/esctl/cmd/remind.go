package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRemindCommand dispatches an ad-hoc reminder for a pending instance.
func NewRemindCommand() *cobra.Command {
	var reminderType string

	cmd := &cobra.Command{
		Use:   "remind <instance-id>",
		Short: "Send an ad-hoc reminder for a pending workflow instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			api, err := buildClient(rt)
			if err != nil {
				return err
			}

			instanceID := args[0]
			if err := api.SendReminder(cmd.Context(), instanceID, reminderType); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "%s reminder sent for %s\n", reminderType, instanceID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reminderType, "type", "t", "sla_warning", "Reminder type: sla_warning, escalation, overdue")

	return cmd
}
