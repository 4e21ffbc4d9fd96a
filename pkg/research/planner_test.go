package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
)

func TestPlanParsesTasksFromProse(t *testing.T) {
	gen := &fakeGenerator{responses: map[PromptKind]string{
		PromptPlan: `Here is the plan you asked for:
[
  {"description": "Survey EV battery supply chains", "topic": "supply_chain", "priority": 5},
  {"description": "Map charging infrastructure gaps", "topic": "infrastructure", "priority": 9}
]
Let me know if you need anything else.`,
	}}
	p := NewPlanner(gen, nil)
	s := state.New("ev market", 5)

	p.Plan(context.Background(), s)

	require.Len(t, s.Plan, 2)
	assert.Equal(t, "supply_chain", s.Plan[0].Topic)
	assert.Equal(t, 5, s.Plan[0].Priority)
	// Out-of-range priorities are clamped to the middle.
	assert.Equal(t, 3, s.Plan[1].Priority)
	assert.Equal(t, state.TaskPending, s.Plan[0].Status)
	assert.Equal(t, state.StatusResearching, s.Status)
	assert.Empty(t, s.Errors)
}

func TestPlanFallsBackOnGenerationError(t *testing.T) {
	gen := &fakeGenerator{errs: map[PromptKind]error{
		PromptPlan: errors.New("model unavailable"),
	}}
	p := NewPlanner(gen, nil)
	s := state.New("ev market", 5)

	p.Plan(context.Background(), s)

	require.Len(t, s.Plan, 3)
	assert.Equal(t, "market_trends", s.Plan[0].Topic)
	assert.Equal(t, 5, s.Plan[0].Priority)
	assert.Equal(t, "competitive_analysis", s.Plan[1].Topic)
	assert.Equal(t, "stakeholder_analysis", s.Plan[2].Topic)
	assert.Equal(t, state.StatusResearching, s.Status)

	require.Len(t, s.Errors, 1)
	assert.Equal(t, state.ErrKindGeneration, s.Errors[0].Kind)
	assert.Equal(t, "planner", s.Errors[0].Component)
}

func TestPlanFallsBackOnUnparsableOutput(t *testing.T) {
	gen := &fakeGenerator{responses: map[PromptKind]string{
		PromptPlan: "I could not produce a plan in the requested format.",
	}}
	p := NewPlanner(gen, nil)
	s := state.New("ev market", 5)

	p.Plan(context.Background(), s)

	require.Len(t, s.Plan, 3)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, state.ErrKindValidation, s.Errors[0].Kind)
}

func TestNextTaskPicksHighestPriority(t *testing.T) {
	p := NewPlanner(nil, nil)
	s := state.New("ev market", 5)
	low := state.NewTask("low", "a", 2)
	high := state.NewTask("high", "b", 5)
	mid := state.NewTask("mid", "c", 4)
	s.Plan = []*state.ResearchTask{low, high, mid}

	next := p.NextTask(s)
	require.NotNil(t, next)
	assert.Equal(t, high.ID, next.ID)
}

func TestNextTaskTiesKeepInsertionOrder(t *testing.T) {
	p := NewPlanner(nil, nil)
	s := state.New("ev market", 5)
	first := state.NewTask("first", "a", 4)
	second := state.NewTask("second", "b", 4)
	s.Plan = []*state.ResearchTask{first, second}

	next := p.NextTask(s)
	require.NotNil(t, next)
	assert.Equal(t, first.ID, next.ID)
}

func TestNextTaskSkipsNonPending(t *testing.T) {
	p := NewPlanner(nil, nil)
	s := state.New("ev market", 5)
	done := state.NewTask("done", "a", 5)
	done.Status = state.TaskCompleted
	pending := state.NewTask("pending", "b", 1)
	s.Plan = []*state.ResearchTask{done, pending}

	next := p.NextTask(s)
	require.NotNil(t, next)
	assert.Equal(t, pending.ID, next.ID)
}

func TestNextTaskNilWhenExhausted(t *testing.T) {
	p := NewPlanner(nil, nil)
	s := state.New("ev market", 5)
	done := state.NewTask("done", "a", 5)
	done.Status = state.TaskCompleted
	s.Plan = []*state.ResearchTask{done}

	assert.Nil(t, p.NextTask(s))
}

func TestMarkCompletedUnknownIDIsNoOp(t *testing.T) {
	p := NewPlanner(nil, nil)
	s := state.New("ev market", 5)
	task := state.NewTask("task", "a", 5)
	s.Plan = []*state.ResearchTask{task}

	p.MarkCompleted(s, "no-such-id")
	assert.Equal(t, state.TaskPending, task.Status)

	p.MarkInProgress(s, task.ID)
	assert.Equal(t, state.TaskInProgress, task.Status)
	p.MarkCompleted(s, task.ID)
	assert.Equal(t, state.TaskCompleted, task.Status)
}
