package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"contractrules-backend/models"
)

var (
	ErrReviewNotFound = errors.New("review task not found")
	ErrReviewResolved = errors.New("review task already resolved")
)

// ReviewTaskStore reads and resolves review tasks.
type ReviewTaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewTask, error)
	ListPending(ctx context.Context, assignee *string) ([]*models.ReviewTask, error)
	Resolve(ctx context.Context, task *models.ReviewTask) error
}

// RuleActivator flips the active flag on a synthesized rule.
type RuleActivator interface {
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// NodeActivator flips the active flag on a graph node.
type NodeActivator interface {
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// ReviewService resolves the human-review queue. Approval is the only path
// to activation for anything the pipeline held back.
type ReviewService struct {
	tasks ReviewTaskStore
	rules RuleActivator
	nodes NodeActivator
}

// NewReviewService creates a new review service
func NewReviewService(tasks ReviewTaskStore, rules RuleActivator, nodes NodeActivator) *ReviewService {
	return &ReviewService{tasks: tasks, rules: rules, nodes: nodes}
}

// ListPending returns open review tasks, optionally filtered by assignee.
func (s *ReviewService) ListPending(ctx context.Context, assignee *string) ([]*models.ReviewTask, error) {
	return s.tasks.ListPending(ctx, assignee)
}

// Approve resolves a task and activates its target.
func (s *ReviewService) Approve(ctx context.Context, taskID uuid.UUID, assignee, notes *string) (*models.ReviewTask, error) {
	return s.resolve(ctx, taskID, models.ReviewApproved, assignee, notes)
}

// Reject resolves a task and leaves its target inactive.
func (s *ReviewService) Reject(ctx context.Context, taskID uuid.UUID, assignee, notes *string) (*models.ReviewTask, error) {
	return s.resolve(ctx, taskID, models.ReviewRejected, assignee, notes)
}

func (s *ReviewService) resolve(ctx context.Context, taskID uuid.UUID, status models.ReviewTaskStatus, assignee, notes *string) (*models.ReviewTask, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, ErrReviewNotFound
	}
	if task.Status != models.ReviewPending {
		return nil, ErrReviewResolved
	}

	if status == models.ReviewApproved {
		if err := s.activateTarget(ctx, task); err != nil {
			return nil, err
		}
	}

	task.Status = status
	if assignee != nil {
		task.Assignee = assignee
	}
	if notes != nil {
		task.Notes = notes
	}
	if err := s.tasks.Resolve(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to resolve review task: %w", err)
	}

	log.WithFields(log.Fields{
		"task_id":     taskID,
		"target_type": task.TargetType,
		"target_id":   task.TargetID,
		"status":      status,
	}).Info("review task resolved")

	return task, nil
}

func (s *ReviewService) activateTarget(ctx context.Context, task *models.ReviewTask) error {
	switch task.TargetType {
	case models.TargetRuleDefinition:
		if err := s.rules.SetActive(ctx, task.TargetID, true); err != nil {
			return fmt.Errorf("failed to activate rule: %w", err)
		}
	case models.TargetGraphNode:
		if err := s.nodes.SetActive(ctx, task.TargetID, true); err != nil {
			return fmt.Errorf("failed to activate node: %w", err)
		}
	default:
		return fmt.Errorf("unknown review target type: %s", task.TargetType)
	}
	return nil
}
