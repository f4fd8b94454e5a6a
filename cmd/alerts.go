package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/hagzilla/apiserver/internal/logger"
	"github.com/hagzilla/apiserver/internal/mq"
	"github.com/hagzilla/apiserver/internal/services"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Budget alert tooling",
}

var alertsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log budget.exceeded events from the alerts channel until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		backend, err := mq.Open(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if backend != nil {
			defer backend.Close()
		}

		alerts := services.NewAlertService(nil, backend, cfg.MQ.AlertsChannel)
		logger.Get().Info().Str("channel", cfg.MQ.AlertsChannel).Msg("watching budget alerts")

		err = alerts.Watch(cmd.Context(), func(event services.BudgetExceeded) error {
			logger.Get().Warn().
				Int("user_id", event.UserID).
				Int("expense_id", event.ExpenseID).
				Float64("amount", event.Amount).
				Float64("remaining_budget", event.RemainingBudget).
				Time("occurred_at", event.OccurredAt).
				Msg(services.BudgetExceededMessage)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsWatchCmd)
}
