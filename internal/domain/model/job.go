package model

import (
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status may never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Channel identifies the surface a job came from and where its answer goes.
type Channel string

const (
	ChannelMobile    Channel = "mobile"
	ChannelTextRelay Channel = "text-relay"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelMobile, ChannelTextRelay:
		return true
	}
	return false
}

// RelayUserID derives a per-conversation identity from a sender address so
// that the user lock and job-history queries are scoped to one conversation.
func RelayUserID(address string) string {
	return "relay:" + strings.TrimSpace(address)
}

// JobResult is present only once a job is terminal. Exactly one of Response
// (completed) or Error (failed) is set.
type JobResult struct {
	Response         string     `json:"response,omitempty"`
	Error            string     `json:"error,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
}

// DefaultRetention bounds how long a job record is kept around; jobs are a
// delivery vehicle, not permanent history.
const DefaultRetention = 10 * time.Minute

type Job struct {
	ID          string
	Status      JobStatus
	Channel     Channel
	UserID      string
	Prompt      string
	ChannelData map[string]string
	Priority    string
	Result      *JobResult
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

func NewJob(id string, channel Channel, userID, prompt string, channelData map[string]string, priority string) *Job {
	now := time.Now()
	if priority == "" {
		priority = "normal"
	}
	if channelData == nil {
		channelData = map[string]string{}
	}
	return &Job{
		ID:          id,
		Status:      JobStatusPending,
		Channel:     channel,
		UserID:      userID,
		Prompt:      prompt,
		ChannelData: channelData,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(DefaultRetention),
	}
}
