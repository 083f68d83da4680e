package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diagnosis/studio16/pkg/events"
)

func newEventsCmd() *cobra.Command {
	var (
		url     string
		subject string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the site's activity events from NATS",
		Long: `Prints every event the server publishes: codes issued, logins and logouts,
editor changes, saves and WhatsApp hand-offs. One line per event.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.NATS.URL
			}
			if url == "" {
				return errors.New("no NATS server: set NATS_URL or --nats")
			}

			bus, err := events.NewNATSEventBus(url)
			if err != nil {
				return err
			}
			defer bus.Close()

			out := cmd.OutOrStdout()
			if err := bus.Subscribe(subject, func(msg *events.Message) {
				fmt.Fprintf(out, "%s %s %s\n", msg.Timestamp.Format("15:04:05.000"), msg.Subject, msg.Data)
			}); err != nil {
				return err
			}
			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "nats", "", "NATS server URL (defaults to NATS_URL)")
	cmd.Flags().StringVar(&subject, "subject", events.AllSubjects, "Subject filter")
	return cmd
}
