package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractrules-backend/models"
)

type reviewFixture struct {
	tasks *fakeReviewStore
	rules *fakeRuleStore
	nodes *fakeGraphStore
	svc   *ReviewService
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		tasks: newFakeReviewStore(),
		rules: newFakeRuleStore(),
		nodes: newFakeGraphStore(),
	}
	f.svc = NewReviewService(f.tasks, f.rules, f.nodes)
	return f
}

func (f *reviewFixture) addTask(t *testing.T, targetType string, confidence float64) *models.ReviewTask {
	t.Helper()
	task := &models.ReviewTask{
		ID:         uuid.New(),
		RunID:      uuid.New(),
		TargetType: targetType,
		TargetID:   uuid.New(),
		Confidence: confidence,
		Priority:   models.PriorityNormal,
		Status:     models.ReviewPending,
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

// TestApprove_ActivatesRule verifies approving a rule task flips the rule
// active and resolves the task.
func TestApprove_ActivatesRule(t *testing.T) {
	f := newReviewFixture()
	task := f.addTask(t, models.TargetRuleDefinition, 0.6)

	assignee := "reviewer@example.com"
	notes := "rate confirmed against section 4.2"
	resolved, err := f.svc.Approve(context.Background(), task.ID, &assignee, &notes)
	require.NoError(t, err)

	assert.Equal(t, models.ReviewApproved, resolved.Status)
	require.NotNil(t, resolved.Assignee)
	assert.Equal(t, assignee, *resolved.Assignee)
	require.NotNil(t, resolved.Notes)
	assert.Equal(t, notes, *resolved.Notes)

	assert.True(t, f.rules.activated[task.TargetID])
	assert.Empty(t, f.nodes.activated)

	stored, err := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)
}

// TestApprove_ActivatesNode verifies node targets route to the node
// activator.
func TestApprove_ActivatesNode(t *testing.T) {
	f := newReviewFixture()
	task := f.addTask(t, models.TargetGraphNode, 0.55)

	_, err := f.svc.Approve(context.Background(), task.ID, nil, nil)
	require.NoError(t, err)

	assert.True(t, f.nodes.activated[task.TargetID])
	assert.Empty(t, f.rules.activated)
}

// TestReject_LeavesTargetInactive verifies rejection resolves the task
// without touching the target.
func TestReject_LeavesTargetInactive(t *testing.T) {
	f := newReviewFixture()
	task := f.addTask(t, models.TargetRuleDefinition, 0.4)

	resolved, err := f.svc.Reject(context.Background(), task.ID, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ReviewRejected, resolved.Status)
	assert.Empty(t, f.rules.activated)
	assert.Empty(t, f.nodes.activated)
}

// TestResolve_Failures covers unknown tasks and double resolution.
func TestResolve_Failures(t *testing.T) {
	t.Run("unknown task", func(t *testing.T) {
		f := newReviewFixture()
		_, err := f.svc.Approve(context.Background(), uuid.New(), nil, nil)
		assert.ErrorIs(t, err, ErrReviewNotFound)
	})

	t.Run("already resolved", func(t *testing.T) {
		f := newReviewFixture()
		task := f.addTask(t, models.TargetRuleDefinition, 0.6)

		_, err := f.svc.Approve(context.Background(), task.ID, nil, nil)
		require.NoError(t, err)

		_, err = f.svc.Reject(context.Background(), task.ID, nil, nil)
		assert.ErrorIs(t, err, ErrReviewResolved)
	})

	t.Run("unknown target type", func(t *testing.T) {
		f := newReviewFixture()
		task := f.addTask(t, "mystery_target", 0.6)

		_, err := f.svc.Approve(context.Background(), task.ID, nil, nil)
		require.Error(t, err)

		// The task stays pending when activation fails.
		stored, err := f.tasks.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewPending, stored.Status)
	})
}

// TestListPending verifies resolved tasks drop out and the assignee filter
// applies.
func TestListPending(t *testing.T) {
	f := newReviewFixture()
	first := f.addTask(t, models.TargetRuleDefinition, 0.6)
	second := f.addTask(t, models.TargetGraphNode, 0.4)

	assignee := "reviewer@example.com"
	f.tasks.tasks[second.ID].Assignee = &assignee

	pending, err := f.svc.ListPending(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	filtered, err := f.svc.ListPending(context.Background(), &assignee)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, second.ID, filtered[0].ID)

	_, err = f.svc.Reject(context.Background(), first.ID, nil, nil)
	require.NoError(t, err)

	pending, err = f.svc.ListPending(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}
