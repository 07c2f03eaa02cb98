package models

// Domain models matching the database schema in db/migrations/0001_init.sql

type User struct {
	ID             int64  `json:"id" db:"id"`
	Username       string `json:"username" db:"username"`
	Email          string `json:"email" db:"email" validate:"required,email"`
	PasswordHash   string `json:"-" db:"password_hash"`
	InterviewsLeft int    `json:"interviews_left" db:"interviews_left"`
	CurrentPlan    string `json:"current_plan" db:"current_plan"`
	Created        int64  `json:"created" db:"created"`
	Updated        int64  `json:"updated" db:"updated"`
}

// Interview is one practice session. Everything except IsCompleted and
// InterviewAnalysis is fixed at creation; those two are written once by
// the completion flow.
type Interview struct {
	ID                string   `json:"id" db:"id"`
	UserID            int64    `json:"user_id" db:"user_id"`
	Role              string   `json:"role" db:"role"`
	Level             string   `json:"level" db:"level"`
	TechStack         []string `json:"tech_stack" db:"tech_stack"`
	Amount            int      `json:"amount" db:"amount"`
	Questions         []string `json:"questions" db:"questions"`
	IsCompleted       bool     `json:"is_completed" db:"is_completed"`
	InterviewAnalysis *string  `json:"interview_analysis,omitempty" db:"interview_analysis"`
	Created           int64    `json:"created" db:"created"`
	Updated           int64    `json:"updated" db:"updated"`
}

type Schema struct {
	ID          int64  `json:"id" db:"id"`
	Version     string `json:"version" db:"version"`
	Description string `json:"description,omitempty" db:"description"`
	SchemaJSON  string `json:"schema_json" db:"schema_json"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

type Template struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Version     string  `json:"version" db:"version"`
	TemplateTxt string  `json:"template_text" db:"template_text"`
	SchemaVer   *string `json:"schema_version,omitempty" db:"schema_version"`
	Metadata    *string `json:"metadata,omitempty" db:"metadata"`
	Created     int64   `json:"created" db:"created"`
	Updated     int64   `json:"updated" db:"updated"`
}

// Turn is one utterance of an interview transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
