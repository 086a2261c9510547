package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

const redacted = "********"

// configCommands prints the effective configuration after env overrides and
// defaults. Secrets are masked.
func configCommands(p *pesqueraInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := *p.cnf
			if cfg.Server.SecretKey != "" {
				cfg.Server.SecretKey = redacted
			}
			if cfg.Notification.Slack.WebhookUrl != "" {
				cfg.Notification.Slack.WebhookUrl = redacted
			}

			data, err := json.MarshalIndent(cfg, "", "    ")
			if err != nil {
				log.Fatalf("Error printing config: %v\n", err)
			}
			fmt.Println(string(data))
		},
	}
	return cmd
}
