package store

// TutorMessage is one persisted conversation turn.
type TutorMessage struct {
	ID              string
	SessionID       string
	Role            string
	Content         string
	CorrectionsJSON []byte // JSON array, empty when the message has none
	MicroExercise   string
	CreatedTs       int64 // unix milliseconds
}

type FindTutorMessage struct {
	SessionID string
	Limit     int // <= 0 means all
}

// SessionCounters is the persisted cadence state of a session.
type SessionCounters struct {
	SessionID         string
	TotalMessageCount int
	UserTurnCount     int
	LastFeedbackAt    int
	LastExerciseAt    int
	UpdatedTs         int64
}
