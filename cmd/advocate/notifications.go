package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/retention"
)

func newNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Notification maintenance commands",
	}

	cmd.AddCommand(newNotificationsPurgeCmd())
	return cmd
}

func newNotificationsPurgeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete read notifications past the retention window",
		Long:  "Runs the retention job once, outside its schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotificationsPurge(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runNotificationsPurge(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connectFromConfig(cmd, configPath)
	if err != nil {
		return err
	}

	job, err := retention.NewJob(notify.NewSink(gormDB, nil), cfg.Notifications.Retention(), cfg.Notifications.PurgeSchedule)
	if err != nil {
		return err
	}
	n, err := job.RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d read notifications older than %d days\n", n, cfg.Notifications.RetentionDays)
	return nil
}
