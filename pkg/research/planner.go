package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
)

// Planner owns the task backlog: it populates the plan, selects the next
// task, and records task status transitions.
type Planner struct {
	Generator TextGenerator
	Logger    *slog.Logger
}

func NewPlanner(gen TextGenerator, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{Generator: gen, Logger: logger}
}

// Plan decomposes the query into 3-5 prioritized tasks. Called only on the
// first iteration. Planning never fatally fails: on generation or parse
// failure the fixed fallback plan is installed so the loop can proceed.
func (p *Planner) Plan(ctx context.Context, s *state.ResearchState) {
	p.Logger.Info("Planning research", "query", s.Query)

	content, err := p.Generator.Generate(ctx, PromptPlan, map[string]string{
		"query": s.Query,
	})
	if err != nil {
		p.Logger.Error("Planning generation failed, using fallback plan", "error", err)
		s.RecordError("planner", state.ErrKindGeneration, err.Error())
		s.Plan = fallbackPlan(s.Query)
		s.Status = state.StatusResearching
		return
	}

	tasks, err := parsePlannedTasks(content)
	if err != nil {
		p.Logger.Warn("Task parsing failed, using fallback plan", "error", err)
		s.RecordError("planner", state.ErrKindValidation, err.Error())
		s.Plan = fallbackPlan(s.Query)
		s.Status = state.StatusResearching
		return
	}

	topics := make([]string, len(tasks))
	for i, t := range tasks {
		topics[i] = t.Topic
	}
	p.Logger.Info("Research plan created", "task_count", len(tasks), "topics", topics)

	s.Plan = tasks
	s.Status = state.StatusResearching
}

// NextTask returns the highest-priority pending task, or nil when none
// remain. Ties keep original insertion order. Does not mutate state.
func (p *Planner) NextTask(s *state.ResearchState) *state.ResearchTask {
	var pending []*state.ResearchTask
	for _, task := range s.Plan {
		if task.Status == state.TaskPending {
			pending = append(pending, task)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority > pending[j].Priority
	})

	next := pending[0]
	p.Logger.Info("Next task selected", "task", next.Description, "priority", next.Priority)
	return next
}

// MarkInProgress transitions a task to in_progress. Unknown ids are a no-op.
func (p *Planner) MarkInProgress(s *state.ResearchState, taskID string) {
	for _, task := range s.Plan {
		if task.ID == taskID {
			task.Status = state.TaskInProgress
			return
		}
	}
}

// MarkCompleted transitions a task to completed. Unknown ids are a no-op,
// not an error.
func (p *Planner) MarkCompleted(s *state.ResearchState, taskID string) {
	for _, task := range s.Plan {
		if task.ID == taskID {
			task.Status = state.TaskCompleted
			p.Logger.Info("Task completed", "task_id", taskID)
			return
		}
	}
}

type plannedTask struct {
	Description string `json:"description"`
	Topic       string `json:"topic"`
	Priority    int    `json:"priority"`
}

func parsePlannedTasks(content string) ([]*state.ResearchTask, error) {
	raw, err := extractJSONArray(content)
	if err != nil {
		return nil, err
	}

	var parsed []plannedTask
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("json parse error: %w", err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("empty task list")
	}

	tasks := make([]*state.ResearchTask, 0, len(parsed))
	for _, pt := range parsed {
		priority := pt.Priority
		if priority < 1 || priority > 5 {
			priority = 3
		}
		tasks = append(tasks, state.NewTask(pt.Description, pt.Topic, priority))
	}
	return tasks, nil
}

// extractJSONArray pulls the first top-level JSON array span out of model
// output that may contain surrounding prose or code fences.
func extractJSONArray(content string) (string, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON array found in response")
	}
	return content[start : end+1], nil
}

// fallbackPlan is the deterministic three-task template used when LLM
// planning is unavailable.
func fallbackPlan(query string) []*state.ResearchTask {
	return []*state.ResearchTask{
		state.NewTask(fmt.Sprintf("Research market trends for %s", query), "market_trends", 5),
		state.NewTask(fmt.Sprintf("Analyze competitive landscape for %s", query), "competitive_analysis", 4),
		state.NewTask(fmt.Sprintf("Identify key players and stakeholders in %s", query), "stakeholder_analysis", 3),
	}
}
