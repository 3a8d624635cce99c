package storage

import (
	"errors"
	"testing"
	"time"
)

func TestEnqueueAndClaimJob(t *testing.T) {
	s := openTestStore(t)

	id, err := s.EnqueueJob(ctx, Job{ID: "j-claim-1", Type: "purge_document", PayloadJSON: `{"document_id":1}`})
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if id != "j-claim-1" {
		t.Errorf("id = %q, want %q", id, "j-claim-1")
	}

	got, err := s.ClaimNextJob(ctx, []string{"purge_document"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got == nil {
		t.Fatal("ClaimNextJob returned nil")
	}
	if got.ID != "j-claim-1" {
		t.Errorf("ID = %q, want %q", got.ID, "j-claim-1")
	}
	if got.PayloadJSON != `{"document_id":1}` {
		t.Errorf("PayloadJSON = %q", got.PayloadJSON)
	}
	if got.Status != JobRunning {
		t.Errorf("Status = %q, want %q", got.Status, JobRunning)
	}
	if got.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", got.MaxAttempts)
	}
}

func TestEnqueueJob_GeneratesID(t *testing.T) {
	s := openTestStore(t)

	id, err := s.EnqueueJob(ctx, Job{Type: "x", PayloadJSON: `{}`})
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("generated id = %q, want a UUID", id)
	}
	if _, err := s.GetJob(ctx, id); err != nil {
		t.Errorf("GetJob: %v", err)
	}
}

func TestClaimNextJob_Empty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ClaimNextJob(ctx, []string{"x"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestClaimNextJob_RespectRunAfter(t *testing.T) {
	s := openTestStore(t)

	mustEnqueue(t, s, Job{ID: "j-future", Type: "x", PayloadJSON: `{}`, RunAfter: time.Now().UTC().Add(time.Hour)})

	got, err := s.ClaimNextJob(ctx, []string{"x"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for future run_after, got %+v", got)
	}
}

func TestClaimNextJob_TypeFilterAndSkipsRunning(t *testing.T) {
	s := openTestStore(t)

	mustEnqueue(t, s, Job{ID: "j-a", Type: "a", PayloadJSON: `{}`})
	mustEnqueue(t, s, Job{ID: "j-b", Type: "b", PayloadJSON: `{}`})

	got, err := s.ClaimNextJob(ctx, []string{"a"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if got == nil || got.ID != "j-a" {
		t.Fatalf("first claim = %+v, want j-a", got)
	}
	again, err := s.ClaimNextJob(ctx, []string{"a"})
	if err != nil {
		t.Fatalf("second ClaimNextJob: %v", err)
	}
	if again != nil {
		t.Errorf("running job claimed twice: %+v", again)
	}
}

func TestCompleteJob(t *testing.T) {
	s := openTestStore(t)

	mustEnqueue(t, s, Job{ID: "j-complete", Type: "x", PayloadJSON: `{}`})
	if _, err := s.ClaimNextJob(ctx, []string{"x"}); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if err := s.CompleteJob(ctx, "j-complete"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	job, err := s.GetJob(ctx, "j-complete")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != JobCompleted {
		t.Errorf("status = %q, want %q", job.Status, JobCompleted)
	}
	if err := s.CompleteJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteJob(missing) = %v, want ErrNotFound", err)
	}
}

func TestFailJob_BackoffThenFailed(t *testing.T) {
	s := openTestStore(t)

	mustEnqueue(t, s, Job{ID: "j-fail", Type: "x", PayloadJSON: `{}`, MaxAttempts: 2})
	if _, err := s.ClaimNextJob(ctx, []string{"x"}); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}

	before := time.Now().UTC()
	if err := s.FailJob(ctx, "j-fail", "something broke"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	job := mustGetJob(t, s, "j-fail")
	if job.Status != JobPending || job.Attempts != 1 {
		t.Errorf("after first failure: status=%q attempts=%d", job.Status, job.Attempts)
	}
	if job.LastError != "something broke" {
		t.Errorf("last_error = %q", job.LastError)
	}
	if !job.RunAfter.After(before) {
		t.Errorf("run_after %v should be after %v", job.RunAfter, before)
	}

	if err := s.FailJob(ctx, "j-fail", "again"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	job = mustGetJob(t, s, "j-fail")
	if job.Status != JobFailed {
		t.Errorf("status = %q, want %q", job.Status, JobFailed)
	}

	n, err := s.CountJobs(ctx, JobFailed)
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if n != 1 {
		t.Errorf("CountJobs(failed) = %d, want 1", n)
	}
}
