package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/clients"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/config"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/database"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/research"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/research/tools"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
)

// Service owns research jobs: it persists them, runs the engine in a
// background worker per job, and archives findings when a run completes.
// Each job gets its own engine and state record; nothing is shared between
// concurrent runs.
type Service struct {
	DB       *database.PostgresDB
	Cfg      *config.Config
	Archiver *Archiver
}

func NewService(db *database.PostgresDB, cfg *config.Config, archiver *Archiver) *Service {
	return &Service{
		DB:       db,
		Cfg:      cfg,
		Archiver: archiver,
	}
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	Report    json.RawMessage `json:"report,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Config    json.RawMessage `json:"config"`
}

type CreateJobRequest struct {
	Query         string `json:"query"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	maxIterations := req.MaxIterations
	if maxIterations == 0 {
		maxIterations = s.Cfg.MaxIterations
	}
	if maxIterations < 1 {
		return nil, fmt.Errorf("max_iterations must be >= 1, got %d", maxIterations)
	}

	configJSON, _ := json.Marshal(map[string]interface{}{
		"max_iterations": maxIterations,
	})

	jobID := uuid.New()
	query := `
		INSERT INTO research_jobs (id, query, status, config)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, query, status, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, jobID, req.Query, configJSON).Scan(
		&job.ID, &job.Query, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// Start background worker
	go s.runWorker(job.ID, req.Query, maxIterations)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, query, status, report, created_at, updated_at, config
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Query, &job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt, &job.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, query, status, report, created_at, updated_at, config
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Query, &job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt, &job.Config); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (s *Service) runWorker(jobID uuid.UUID, query string, maxIterations int) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))

	llm, err := clients.OpenAi(clients.ModelType(s.Cfg.ReasoningModel))
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Failed to init LLM: %v", err))
		return
	}

	engineCfg := research.Config{
		MaxIterations:      maxIterations,
		MaxResultsPerQuery: s.Cfg.MaxResults,
		SearchDepth:        s.Cfg.SearchDepth,
		MinSourceQuality:   s.Cfg.MinQuality,
		MinRelevance:       s.Cfg.MinRelevance,
	}

	searcher := tools.NewTavilyClient(s.Cfg.TavilyApiKey)
	searcher.Logger = dbLogger

	generator := research.NewLLMGenerator(llm)
	generator.Logger = dbLogger

	engine := research.NewEngine(engineCfg, generator, searcher, dbLogger)

	// Persist state snapshots as the run progresses.
	engine.OnStateUpdate = func(st state.ResearchState) {
		stateJSON, err := json.Marshal(st)
		if err != nil {
			dbLogger.Error("Failed to marshal state", "error", err)
			return
		}

		_, err = s.DB.Pool.Exec(context.Background(),
			"UPDATE research_jobs SET state = $2, updated_at = NOW() WHERE id = $1",
			jobID, stateJSON)
		if err != nil {
			dbLogger.Error("Failed to save state to DB", "error", err)
		}
	}

	var findings []state.Finding
	engine.OnStateUpdate = chainStateHooks(engine.OnStateUpdate, func(st state.ResearchState) {
		findings = st.Findings
	})

	report, err := engine.Run(ctx, query)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Research failed: %v", err))
		return
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Failed to marshal report: %v", err))
		return
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = 'completed', report = $2, updated_at = NOW() WHERE id = $1",
		jobID, reportJSON)
	if err != nil {
		dbLogger.Error("Failed to save final report to DB", "error", err)
	}

	// Archive findings for semantic search. Best effort: archive failures
	// never fail a completed job.
	if s.Archiver != nil {
		if err := s.Archiver.ArchiveFindings(ctx, jobID, findings); err != nil {
			dbLogger.Error("Failed to archive findings", "error", err)
		}
	}
}

func chainStateHooks(hooks ...func(state.ResearchState)) func(state.ResearchState) {
	return func(st state.ResearchState) {
		for _, h := range hooks {
			if h != nil {
				h(st)
			}
		}
	}
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'failed', updated_at = NOW() WHERE id = $1", jobID)
}
