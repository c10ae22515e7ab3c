package memory

// SummaryTrigger decides when a session's summary is (re)computed.
type SummaryTrigger struct {
	Threshold      int
	UpdateInterval int
}

// ShouldSummarize fires once count reaches the threshold, then again every
// UpdateInterval messages. lastAt is the count at the previous summary, or 0.
func (t SummaryTrigger) ShouldSummarize(count, lastAt int) bool {
	if count < t.Threshold {
		return false
	}
	if lastAt == 0 {
		return true
	}
	return count-lastAt >= max(t.UpdateInterval, 1)
}
