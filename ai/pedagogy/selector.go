package pedagogy

import (
	"sort"
	"strings"

	"github.com/hrygo/polyglot/ai/tutor"
)

// Scores are kept in hundredths so ranking never depends on float rounding.
const (
	beginnerBonus      = 30
	intermediateStyle  = 20
	intermediateOther  = 10
	recencyPenalty     = 20
	recencyWindow      = 5
	verbosityPenalty   = 10
	verbosityThreshold = 100
)

// CorrectionSelector ranks a candidate pool and keeps the most useful
// corrections. It holds no mutable state.
type CorrectionSelector struct {
	constraints Constraints
}

func NewCorrectionSelector(c Constraints) *CorrectionSelector {
	return &CorrectionSelector{constraints: c}
}

// ScoredCorrection is a candidate with its score.
type ScoredCorrection struct {
	Correction tutor.Correction
	Score      float64
}

// Score rates one candidate for level given the recently shown corrections.
func (s *CorrectionSelector) Score(c tutor.Correction, level tutor.Level, recent []tutor.Correction) float64 {
	return float64(s.score(c, level, recent)) / 100
}

func (s *CorrectionSelector) score(c tutor.Correction, level tutor.Level, recent []tutor.Correction) int {
	score := s.constraints.weight(c.Category)

	switch {
	case level.IsBeginner():
		if c.Category == tutor.CategoryGrammar || c.Category == tutor.CategoryVocabulary {
			score += beginnerBonus
		}
	case level.CEFR() == tutor.LevelB1:
		if c.Category == tutor.CategoryStyle {
			score += intermediateStyle
		} else {
			score += intermediateOther
		}
	}

	if len(recent) > recencyWindow {
		recent = recent[len(recent)-recencyWindow:]
	}
	for _, r := range recent {
		if strings.EqualFold(c.Original, r.Original) || c.Category == r.Category {
			score -= recencyPenalty
		}
	}

	if len([]rune(c.Explanation)) > verbosityThreshold {
		score -= verbosityPenalty
	}
	return max(score, 0)
}

// Rank scores every candidate and orders them best first. Equal scores keep
// input order.
func (s *CorrectionSelector) Rank(pool []tutor.Correction, level tutor.Level, recent []tutor.Correction) []ScoredCorrection {
	type scored struct {
		c     tutor.Correction
		score int
	}
	items := make([]scored, len(pool))
	for i, c := range pool {
		items[i] = scored{c: c, score: s.score(c, level, recent)}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	out := make([]ScoredCorrection, len(items))
	for i, it := range items {
		out[i] = ScoredCorrection{Correction: it.c, Score: float64(it.score) / 100}
	}
	return out
}

// Select returns at most MaxCorrections corrections, best first.
func (s *CorrectionSelector) Select(pool []tutor.Correction, level tutor.Level, recent []tutor.Correction) []tutor.Correction {
	if len(pool) == 0 {
		return nil
	}
	ranked := s.Rank(pool, level, recent)
	n := min(len(ranked), s.constraints.MaxCorrections)
	out := make([]tutor.Correction, n)
	for i := range n {
		out[i] = ranked[i].Correction
	}
	return out
}
