package pedagogy

import (
	"math"
	"sync/atomic"
)

// Stats counts engine activity. It is owned by the caller and passed to the
// engine, which only increments it.
type Stats struct {
	messagesProcessed   atomic.Int64
	correctionsSelected atomic.Int64
	exercisesGenerated  atomic.Int64
	feedbackGenerated   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats with derived rates.
type StatsSnapshot struct {
	MessagesProcessed        int64   `json:"messages_processed"`
	CorrectionsSelected      int64   `json:"corrections_selected"`
	ExercisesGenerated       int64   `json:"exercises_generated"`
	FeedbackGenerated        int64   `json:"feedback_generated"`
	AvgCorrectionsPerMessage float64 `json:"average_corrections_per_message"`
	ExerciseRatePercent      float64 `json:"exercise_rate_percent"`
	FeedbackRatePercent      float64 `json:"feedback_rate_percent"`
}

func (s *Stats) record(selected int, exercise, feedback bool) {
	if s == nil {
		return
	}
	s.messagesProcessed.Add(1)
	s.correctionsSelected.Add(int64(selected))
	if exercise {
		s.exercisesGenerated.Add(1)
	}
	if feedback {
		s.feedbackGenerated.Add(1)
	}
}

func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		MessagesProcessed:   s.messagesProcessed.Load(),
		CorrectionsSelected: s.correctionsSelected.Load(),
		ExercisesGenerated:  s.exercisesGenerated.Load(),
		FeedbackGenerated:   s.feedbackGenerated.Load(),
	}
	if n := float64(snap.MessagesProcessed); n > 0 {
		snap.AvgCorrectionsPerMessage = round2(float64(snap.CorrectionsSelected) / n)
		snap.ExerciseRatePercent = round2(float64(snap.ExercisesGenerated) / n * 100)
		snap.FeedbackRatePercent = round2(float64(snap.FeedbackGenerated) / n * 100)
	}
	return snap
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
