// file: internal/services/badge_subscriber.go
package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"promptvault/internal/events"
)

// BadgeSubscriber evaluates badges for every user an activity event touches and
// announces each new badge as a badge.awarded event. Failures are logged and
// not retried; the next activity for the user re-evaluates anyway.
type BadgeSubscriber struct {
	badges *BadgeService
	bus    events.EventBus
	logger *zap.Logger
}

// NewBadgeSubscriber creates the subscriber. Call Register to attach it to bus.
func NewBadgeSubscriber(badges *BadgeService, bus events.EventBus, logger *zap.Logger) *BadgeSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeSubscriber{badges: badges, bus: bus, logger: logger}
}

// Register subscribes to every activity event pattern.
func (s *BadgeSubscriber) Register() error {
	handler := events.NewEventHandlerFunc("badge-evaluator", s.Handle)
	for _, pattern := range events.ActivityPatterns {
		if err := s.bus.SubscribePattern(pattern, handler); err != nil {
			return fmt.Errorf("failed to subscribe badge evaluator to %s: %w", pattern, err)
		}
	}
	return nil
}

// Handle runs CheckUserBadges for each affected user. Non-activity events are ignored.
// It never returns an evaluation error so one user's failure does not mark the
// event as failed for the others.
func (s *BadgeSubscriber) Handle(ctx context.Context, event events.Event) error {
	activity, ok := event.(events.ActivityEvent)
	if !ok {
		return nil
	}

	for _, userID := range activity.AffectedUsers() {
		earned, err := s.badges.CheckUserBadges(ctx, userID)
		if err != nil {
			s.logger.Warn("Badge check failed",
				zap.Int64("user_id", userID),
				zap.String("event_type", event.GetEventType()),
				zap.String("event_id", event.GetEventID()),
				zap.Error(err))
		}

		for _, badge := range earned {
			if err := s.bus.PublishAsync(ctx, events.NewBadgeAwardedEvent(userID, badge)); err != nil {
				s.logger.Warn("Failed to announce badge",
					zap.Int64("user_id", userID),
					zap.String("badge_id", badge.BadgeID),
					zap.Error(err))
			}
		}
	}
	return nil
}
