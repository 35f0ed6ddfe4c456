package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name     string
	schedule string
	runs     int
	err      error
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Execute(context.Context) error {
	j.runs++
	return j.err
}

func TestRunByNameExecutesRegisteredJob(t *testing.T) {
	s := New()
	job := &countingJob{name: "nightly-backup"}
	s.Register(job)

	require.NoError(t, s.RunByName(context.Background(), "nightly-backup"))
	assert.Equal(t, 1, job.runs)
}

func TestRunByNamePropagatesJobError(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.Register(&countingJob{name: "nightly-backup", err: boom})

	assert.ErrorIs(t, s.RunByName(context.Background(), "nightly-backup"), boom)
}

func TestRunByNameUnknownJob(t *testing.T) {
	s := New()
	s.Register(&countingJob{name: "nightly-backup"})

	err := s.RunByName(context.Background(), "no-such-job")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRegisterOnDemandJobSkipsCron(t *testing.T) {
	s := New()
	job := &countingJob{name: "manual-only"}
	s.Register(job)

	// Never scheduled, still reachable by name.
	require.NoError(t, s.RunByName(context.Background(), "manual-only"))
	assert.Equal(t, 1, job.runs)
}
