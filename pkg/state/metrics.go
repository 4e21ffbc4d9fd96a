package state

import "strings"

// QualityMetrics is the coverage / source quality / insight depth triple that
// drives the termination decision. Each score is in [0, 1].
type QualityMetrics struct {
	CoverageScore      float64 `json:"coverage_score"`
	SourceQualityScore float64 `json:"source_quality_score"`
	InsightDepthScore  float64 `json:"insight_depth_score"`
}

// QualityThresholds are the floors each metric must exceed for a run to be
// considered sufficient.
type QualityThresholds struct {
	Coverage      float64
	SourceQuality float64
	InsightDepth  float64
}

// DefaultQualityThresholds returns the reference floors.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		Coverage:      0.7,
		SourceQuality: 0.6,
		InsightDepth:  0.6,
	}
}

// CalculateQualityMetrics computes the metrics triple from accumulated state.
// Pure function: no side effects, absent inputs score zero.
func CalculateQualityMetrics(s *ResearchState) QualityMetrics {
	return QualityMetrics{
		CoverageScore:      coverageScore(s),
		SourceQualityScore: sourceQualityScore(s),
		InsightDepthScore:  insightDepthScore(s),
	}
}

// Sufficient reports whether all three scores meet their floors. This is the
// primary termination signal.
func (m QualityMetrics) Sufficient(t QualityThresholds) bool {
	return m.CoverageScore >= t.Coverage &&
		m.SourceQualityScore >= t.SourceQuality &&
		m.InsightDepthScore >= t.InsightDepth
}

func coverageScore(s *ResearchState) float64 {
	if len(s.Plan) == 0 {
		return 0
	}

	planTopics := make(map[string]bool, len(s.Plan))
	for _, task := range s.Plan {
		planTopics[strings.ToLower(task.Topic)] = true
	}

	covered := make(map[string]bool, len(s.CoveredTopics))
	for _, topic := range s.CoveredTopics {
		topic = strings.ToLower(topic)
		if planTopics[topic] {
			covered[topic] = true
		}
	}

	return float64(len(covered)) / float64(len(planTopics))
}

func sourceQualityScore(s *ResearchState) float64 {
	if len(s.Findings) == 0 {
		return 0
	}

	var total float64
	for _, f := range s.Findings {
		total += f.SourceQuality
	}
	return total / float64(len(s.Findings))
}

// insightDepthScore combines insight count and mean confidence. Five or more
// insights saturate the count component; the result is capped at 1.0.
func insightDepthScore(s *ResearchState) float64 {
	if len(s.Insights) == 0 {
		return 0
	}

	countScore := float64(len(s.Insights)) / 5.0
	if countScore > 1.0 {
		countScore = 1.0
	}

	var totalConfidence float64
	for _, i := range s.Insights {
		totalConfidence += i.Confidence
	}
	meanConfidence := totalConfidence / float64(len(s.Insights))

	depth := 0.5*countScore + 0.5*meanConfidence
	if depth > 1.0 {
		depth = 1.0
	}
	return depth
}
