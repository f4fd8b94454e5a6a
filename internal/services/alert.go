package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hagzilla/apiserver/internal/logger"
	"github.com/hagzilla/apiserver/internal/metrics"
	"github.com/hagzilla/apiserver/internal/mq"
	"github.com/hagzilla/apiserver/types"
)

const (
	EventBudgetExceeded   = "budget.exceeded"
	BudgetExceededMessage = "Budget exceeded!"

	publishTimeout = 5 * time.Second
)

// BudgetExceeded is the payload published when an expense pushes a user
// below zero.
type BudgetExceeded struct {
	UserID          int       `json:"user_id"`
	ExpenseID       int       `json:"expense_id"`
	Amount          float64   `json:"amount"`
	RemainingBudget float64   `json:"remaining_budget"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Alert is one row of the admin alert listing.
type Alert struct {
	UserID          int     `json:"user_id"`
	Username        string  `json:"username"`
	RemainingBudget float64 `json:"remaining_budget"`
	Message         string  `json:"message"`
}

type OverBudgetLister interface {
	ListOverBudget(ctx context.Context) ([]types.User, error)
}

// AlertService lists overspent users and fans budget events out over the
// message broker. A nil backend disables publishing and watching.
type AlertService struct {
	users   OverBudgetLister
	backend mq.Backend
	channel string
}

func NewAlertService(users OverBudgetLister, backend mq.Backend, channel string) *AlertService {
	return &AlertService{users: users, backend: backend, channel: channel}
}

func (s *AlertService) List(ctx context.Context) ([]Alert, error) {
	users, err := s.users.ListOverBudget(ctx)
	if err != nil {
		return nil, err
	}

	alerts := make([]Alert, 0, len(users))
	for _, u := range users {
		alerts = append(alerts, Alert{
			UserID:          u.ID,
			Username:        u.Username,
			RemainingBudget: u.Budget,
			Message:         BudgetExceededMessage,
		})
	}
	return alerts, nil
}

// NotifyBudgetExceeded publishes the event. It never fails the caller:
// errors are logged and counted.
func (s *AlertService) NotifyBudgetExceeded(ctx context.Context, event BudgetExceeded) {
	if s.backend == nil {
		metrics.BudgetAlertsTotal.WithLabelValues("skipped").Inc()
		return
	}

	log := logger.Get()
	data, err := json.Marshal(event)
	if err != nil {
		metrics.BudgetAlertsTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Int("user_id", event.UserID).Msg("encode budget alert")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	id, err := s.backend.Publish(ctx, s.channel, data, map[string]string{"type": EventBudgetExceeded})
	if err != nil {
		metrics.BudgetAlertsTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Int("user_id", event.UserID).Str("channel", s.channel).Msg("publish budget alert")
		return
	}

	metrics.BudgetAlertsTotal.WithLabelValues("published").Inc()
	log.Info().
		Str("message_id", id).
		Int("user_id", event.UserID).
		Float64("remaining_budget", event.RemainingBudget).
		Msg("budget alert published")
}

// Watch consumes budget events until ctx is done. Messages of other types
// are acknowledged and dropped.
func (s *AlertService) Watch(ctx context.Context, fn func(BudgetExceeded) error) error {
	if s.backend == nil {
		return fmt.Errorf("%w: no message broker configured", ErrInvalidInput)
	}

	return s.backend.Subscribe(ctx, s.channel, func(ctx context.Context, msg mq.Message) error {
		if msg.Attributes["type"] != EventBudgetExceeded {
			return nil
		}
		var event BudgetExceeded
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Get().Warn().Err(err).Str("message_id", msg.ID).Msg("drop malformed budget alert")
			return nil
		}
		return fn(event)
	})
}
