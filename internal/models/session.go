package models

import (
	"time"
)

type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionRunning   SessionState = "running"
	SessionCompleted SessionState = "completed"
)

// Session is the state owned by one interactive user session.
type Session struct {
	ID                string           `json:"id"`
	State             SessionState     `json:"state"`
	AnalysisCompleted bool             `json:"analysis_completed"`
	Results           []AnalysisResult `json:"results"`
	ThreadIDs         []string         `json:"thread_ids"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		State:     SessionIdle,
		Results:   []AnalysisResult{},
		ThreadIDs: []string{},
		UpdatedAt: time.Now(),
	}
}

// MarkRunning moves the session into Running and drops stale results.
func (s *Session) MarkRunning() {
	s.State = SessionRunning
	s.AnalysisCompleted = false
	s.Results = []AnalysisResult{}
	s.ThreadIDs = []string{}
	s.UpdatedAt = time.Now()
}

func (s *Session) Complete(results []AnalysisResult, threadIDs []string) {
	if results == nil {
		results = []AnalysisResult{}
	}
	if threadIDs == nil {
		threadIDs = []string{}
	}
	s.State = SessionCompleted
	s.AnalysisCompleted = true
	s.Results = results
	s.ThreadIDs = threadIDs
	s.UpdatedAt = time.Now()
}

// Reset returns the session to Idle with nothing retained.
func (s *Session) Reset() {
	s.State = SessionIdle
	s.AnalysisCompleted = false
	s.Results = []AnalysisResult{}
	s.ThreadIDs = []string{}
	s.UpdatedAt = time.Now()
}

// SessionRecord is the row used by the postgres session store.
type SessionRecord struct {
	ID        string    `gorm:"type:text;primary_key" json:"id"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	ExpiresAt time.Time `gorm:"type:timestamp;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SessionRecord) TableName() string {
	return "analysis_sessions"
}
