/**
 * @description
 * This file contains the core business logic for the user-service.
 * The Service layer looks up a user's credit through the repository, classifies it,
 * and stamps the decision with the version tag resolved once at construction.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/swiftorder/user-service/internal/domain"
)

const defaultQueryTimeout = 5 * time.Second

// Repository defines the interface for database operations that the service needs.
type Repository interface {
	FindCreditByUserID(ctx context.Context, userID int64) (decimal.Decimal, error)
}

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Service provides the credit lookup logic.
type Service struct {
	repo         Repository
	versionTag   string
	queryTimeout time.Duration
	logger       *slog.Logger

	events *eventDispatcher

	now func() time.Time
}

// NewService creates a new credit service. serviceVersion is the process-wide VERSION
// setting; it is mapped to a response tag here and not consulted again.
func NewService(repo Repository, serviceVersion string, queryTimeout time.Duration, logger *slog.Logger) *Service {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		versionTag:   domain.VersionTag(serviceVersion),
		queryTimeout: queryTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// SetEventPublisher enables publishing of credit.checked events. Events are handed to a
// bounded background queue, so a slow broker never delays a lookup. Call Close on shutdown.
func (s *Service) SetEventPublisher(publisher EventPublisher, exchange string) {
	s.events = newEventDispatcher(publisher, exchange, defaultEventQueueSize, defaultPublishTimeout, s.logger)
}

// Close flushes queued events. It returns ctx.Err() if the queue is not drained in time.
func (s *Service) Close(ctx context.Context) error {
	if s.events == nil {
		return nil
	}
	return s.events.close(ctx)
}

// VersionTag returns the tag stamped on every decision.
func (s *Service) VersionTag() string {
	return s.versionTag
}

// CheckCredit looks up the credit of a user and returns the approval decision.
// It returns domain.ErrUserNotFound when the user does not exist; any other error is a
// store failure.
func (s *Service) CheckCredit(ctx context.Context, userID int64) (*domain.CreditDecision, error) {
	s.logger.Info("checking credit", "version", s.versionTag, "user_id", userID)

	// Bounds pool acquisition as well as the query itself.
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	credit, err := s.repo.FindCreditByUserID(queryCtx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug("user not found", "user_id", userID)
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error("database query error", "user_id", userID, "error", err)
		return nil, fmt.Errorf("check credit for user %d: %w", userID, err)
	}

	decision := domain.NewCreditDecision(userID, credit, s.versionTag)
	s.publishChecked(decision)
	return decision, nil
}

// Ping reports whether the User Store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	pinger, ok := s.repo.(interface {
		Ping(ctx context.Context) error
	})
	if !ok {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return pinger.Ping(pingCtx)
}

func (s *Service) publishChecked(decision *domain.CreditDecision) {
	if s.events == nil {
		return
	}
	s.events.enqueue(domain.NewCreditCheckedEvent(decision, s.now()))
}
