/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/pandapunten/apiserver/config"
	"github.com/pandapunten/apiserver/internal/logging"
	"github.com/pandapunten/apiserver/internal/mq"
	"github.com/pandapunten/apiserver/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow user events on EVENTS_CHANNEL and log them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log.Level, cfg.Log.Format)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer broker.Close()

		logger.WithField("channel", cfg.MQ.Channel).Info("following user events")
		err = broker.Subscribe(ctx, cfg.MQ.Channel, logEvent(logger))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func logEvent(logger logrus.FieldLogger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var event types.UserEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			// Malformed payloads are acked, not retried.
			logger.WithError(err).WithField("message_id", msg.ID).Warn("skipping malformed event")
			return nil
		}
		logger.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"event_id":   event.ID,
			"type":       event.Type,
			"name":       event.Name,
			"last_reset": event.LastReset,
		}).Info("user event")
		return nil
	}
}
