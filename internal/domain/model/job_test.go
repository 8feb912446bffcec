package model

import (
	"testing"
	"time"
)

func TestJobStatusTerminal(t *testing.T) {
	if JobStatusPending.Terminal() || JobStatusProcessing.Terminal() {
		t.Fatalf("non-terminal status reported terminal")
	}
	if !JobStatusCompleted.Terminal() || !JobStatusFailed.Terminal() {
		t.Fatalf("terminal status not reported terminal")
	}
}

func TestJobStatusValid(t *testing.T) {
	for _, s := range []JobStatus{JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed} {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if JobStatus("done").Valid() {
		t.Fatalf("unknown status should be invalid")
	}
}

func TestChannelValid(t *testing.T) {
	if !ChannelMobile.Valid() || !ChannelTextRelay.Valid() {
		t.Fatalf("known channels should be valid")
	}
	if Channel("email").Valid() {
		t.Fatalf("unknown channel should be invalid")
	}
}

func TestRelayUserID(t *testing.T) {
	if got := RelayUserID(" +15550001111 "); got != "relay:+15550001111" {
		t.Fatalf("unexpected relay identity %q", got)
	}
}

func TestNewJobDefaults(t *testing.T) {
	before := time.Now()
	j := NewJob("id-1", ChannelMobile, "u1", "why is the sky blue", nil, "")

	if j.Status != JobStatusPending {
		t.Fatalf("new job should be pending, got %s", j.Status)
	}
	if j.Priority != "normal" {
		t.Fatalf("expected default priority, got %q", j.Priority)
	}
	if j.ChannelData == nil {
		t.Fatalf("expected non-nil channel data")
	}
	if j.CreatedAt.Before(before) {
		t.Fatalf("created_at in the past")
	}
	if got := j.ExpiresAt.Sub(j.CreatedAt); got != DefaultRetention {
		t.Fatalf("expected retention %s, got %s", DefaultRetention, got)
	}
}
