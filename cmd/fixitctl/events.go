package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fixit/internal/events"
	"fixit/internal/models"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the request event stream",
}

var tailPrefix string

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print request events from NATS as JSON lines until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATSURL == "" {
			return fmt.Errorf("NATS_URL is not set")
		}
		prefix := tailPrefix
		if prefix == "" {
			prefix = cfg.NATSSubjectPrefix
		}
		nc, err := events.DialNATS(cfg.NATSURL, "fixitctl")
		if err != nil {
			return err
		}
		defer nc.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		sub, err := events.Subscribe(nc, prefix, func(ev models.Event) {
			_ = enc.Encode(ev)
		}, func(err error) {
			log.Warn().Err(err).Msg("skipping undecodable event")
		})
		if err != nil {
			return err
		}
		defer func() { _ = sub.Unsubscribe() }()
		log.Info().Str("subject", events.Wildcard(prefix)).Msg("tailing")

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-stop:
		case <-cmd.Context().Done():
		}
		return nil
	},
}

func init() {
	eventsTailCmd.Flags().StringVar(&tailPrefix, "prefix", "", "subject prefix (defaults to NATS_SUBJECT_PREFIX)")
	eventsCmd.AddCommand(eventsTailCmd)
}
