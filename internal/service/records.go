package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/matchmaking-service/internal/domain"
	"github.com/spec-kit/matchmaking-service/internal/events"
	"github.com/spec-kit/matchmaking-service/internal/repository"
)

// canonicalID lower-cases a well-formed UUID so equality checks and pair
// ordering agree with the stored form. Other input is only trimmed.
func canonicalID(id string) string {
	id = strings.TrimSpace(id)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}

// startOfDay truncates t to local midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func recordActivity(ctx context.Context, repo repository.ActivityRepository, accountID string, kind domain.ActivityType, description string, at time.Time) error {
	if err := repo.Create(ctx, &domain.Activity{
		AccountID:   accountID,
		Type:        kind,
		Description: description,
		CreatedAt:   at,
	}); err != nil {
		return fmt.Errorf("record %s activity: %w", kind, err)
	}
	return nil
}

func pushNotification(ctx context.Context, repo repository.NotificationRepository, accountID string, kind domain.NotificationType, message, relatedID string, at time.Time) error {
	n := &domain.Notification{
		AccountID: accountID,
		Type:      kind,
		Message:   message,
		CreatedAt: at,
	}
	if relatedID != "" {
		n.RelatedAccountID = &relatedID
	}
	if err := repo.Create(ctx, n); err != nil {
		return fmt.Errorf("create %s notification: %w", kind, err)
	}
	return nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event, now time.Time) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	_ = dispatcher.Publish(ctx, event)
}
