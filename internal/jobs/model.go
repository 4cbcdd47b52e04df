package jobs

import "time"

// LogEntry is one append-only log line on a job. Entries are never removed
// or reordered once recorded.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Step      string    `json:"step,omitempty"`
	Progress  int       `json:"progress"`
}

// Config is the generation request a job was submitted with.
type Config struct {
	RepoRef         string   `json:"repoRef"`
	ProjectName     string   `json:"projectName,omitempty"`
	IncludePatterns []string `json:"includePatterns,omitempty"`
	ExcludePatterns []string `json:"excludePatterns,omitempty"`
	MaxFileSize     int64    `json:"maxFileSize,omitempty"`
	Language        string   `json:"language"`
	UseCache        bool     `json:"useCache"`
	MaxAbstractions int      `json:"maxAbstractions"`
}

// Job represents a tutorial generation job.
type Job struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	CurrentStep   string     `json:"currentStep,omitempty"`
	Logs          []LogEntry `json:"logs"`
	Config        Config     `json:"config"`
	Provider      string     `json:"provider"`
	Model         string     `json:"model"`
	PromptVersion string     `json:"promptVersion"`
	ArtifactKey   string     `json:"artifactKey,omitempty"`
	ErrorCode     string     `json:"errorCode,omitempty"`
	ErrorMessage  *string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Terminal reports whether the job reached a final state.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
