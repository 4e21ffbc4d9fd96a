package state

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus tracks the lifecycle of a single research task.
// Tasks move pending -> in_progress -> completed and never re-enter pending.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Status is the overall run status. It only moves forward.
type Status string

const (
	StatusPlanning    Status = "planning"
	StatusResearching Status = "researching"
	StatusCompleted   Status = "completed"
)

// Error kinds recorded in the state error log.
const (
	ErrKindGeneration = "generation_failure"
	ErrKindRetrieval  = "retrieval_failure"
	ErrKindValidation = "validation_failure"
)

// ResearchTask is one unit of work in the research plan.
type ResearchTask struct {
	ID          string     `json:"task_id"`
	Description string     `json:"description"`
	Topic       string     `json:"topic"`
	Priority    int        `json:"priority"` // 1-5, 5 is highest
	Status      TaskStatus `json:"status"`
}

// Finding is one admitted piece of evidence tied to a task. Immutable once created.
type Finding struct {
	ID             string    `json:"finding_id"`
	TaskID         string    `json:"task_id"`
	Content        string    `json:"content"`
	SourceURL      string    `json:"source_url"`
	SourceTitle    string    `json:"source_title"`
	SourceQuality  float64   `json:"source_quality"`
	RelevanceScore float64   `json:"relevance_score"`
	Timestamp      time.Time `json:"timestamp"`
}

// Insight is a synthesized strategic observation derived from findings.
type Insight struct {
	ID                 string   `json:"insight_id"`
	Category           string   `json:"category"`
	Description        string   `json:"description"`
	SupportingFindings []string `json:"supporting_findings"`
	Confidence         float64  `json:"confidence"` // 0-1
	Priority           int      `json:"priority"`   // 1-5
}

// Recommendation is an actionable suggestion derived from insights.
type Recommendation struct {
	ID                 string   `json:"recommendation_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Rationale          string   `json:"rationale"`
	SupportingInsights []string `json:"supporting_insights"`
	Impact             string   `json:"impact"` // high|medium|low
	Effort             string   `json:"effort"` // high|medium|low
}

// ErrorEntry is one recoverable failure recorded during a run. The log is
// append-only and never cleared while the run is live.
type ErrorEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Component   string    `json:"component"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
}

// ResearchState is the single mutable record threaded through the loop.
// One run owns one state record exclusively; nothing is shared across runs.
type ResearchState struct {
	Query string `json:"query"`

	Plan        []*ResearchTask `json:"research_plan"`
	CurrentTask *ResearchTask   `json:"current_task,omitempty"`

	Findings          []Finding       `json:"findings"` // append-only
	SearchQueriesUsed map[string]bool `json:"search_queries_used"`
	CoveredTopics     []string        `json:"covered_topics"`

	// Replaced wholesale each analysis pass, never appended across iterations.
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`

	QualityMetrics QualityMetrics `json:"quality_metrics"`

	IterationCount int `json:"iteration_count"`
	MaxIterations  int `json:"max_iterations"`
	APICallsCount  int `json:"api_calls_count"`

	Errors            []ErrorEntry `json:"errors"`
	NeedsMoreResearch bool         `json:"needs_more_research"`
	HasCriticalError  bool         `json:"has_critical_error"`

	Status      Status    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// New creates the initial state for a research run.
func New(query string, maxIterations int) *ResearchState {
	return &ResearchState{
		Query:             query,
		Plan:              []*ResearchTask{},
		Findings:          []Finding{},
		SearchQueriesUsed: make(map[string]bool),
		CoveredTopics:     []string{},
		Insights:          []Insight{},
		Recommendations:   []Recommendation{},
		MaxIterations:     maxIterations,
		Errors:            []ErrorEntry{},
		NeedsMoreResearch: true,
		Status:            StatusPlanning,
		StartedAt:         time.Now(),
	}
}

// RecordError appends a recoverable failure to the error log.
func (s *ResearchState) RecordError(component, kind, message string) {
	s.Errors = append(s.Errors, ErrorEntry{
		Timestamp:   time.Now(),
		Component:   component,
		Kind:        kind,
		Message:     message,
		Recoverable: true,
	})
}

// QueryUsed reports whether a search query was already issued this run.
func (s *ResearchState) QueryUsed(query string) bool {
	return s.SearchQueriesUsed[query]
}

// MarkQueryUsed records a search query so it is never issued twice in one run.
func (s *ResearchState) MarkQueryUsed(query string) {
	s.SearchQueriesUsed[query] = true
}

// NewTask creates a pending task with a fresh id.
func NewTask(description, topic string, priority int) *ResearchTask {
	return &ResearchTask{
		ID:          uuid.NewString(),
		Description: description,
		Topic:       topic,
		Priority:    priority,
		Status:      TaskPending,
	}
}

// Source is one unique reference in the final report.
type Source struct {
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	QualityScore float64 `json:"quality_score"`
}

// ReportMetadata captures run statistics for the final report.
type ReportMetadata struct {
	Iterations    int       `json:"iterations"`
	TotalFindings int       `json:"total_findings"`
	APICalls      int       `json:"api_calls"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
}

// FinalReport is the self-contained output of a completed run. It holds no
// references back into the state record.
type FinalReport struct {
	Query           string           `json:"query"`
	Summary         string           `json:"summary"`
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
	Sources         []Source         `json:"sources"`
	QualityMetrics  QualityMetrics   `json:"quality_metrics"`
	Metadata        ReportMetadata   `json:"metadata"`
}
