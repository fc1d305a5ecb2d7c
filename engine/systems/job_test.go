package systems

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidates(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(4, 2)
	require.NoError(t, err)

	var ok, failed atomic.Int32
	boom := errors.New("boom")
	for i := 0; i < 20; i++ {
		run := func() error { return nil }
		if i%5 == 0 {
			run = func() error { return boom }
		}
		js.Submit(Job{
			Name:      "count",
			Run:       run,
			OnSuccess: func() { ok.Add(1) },
			OnFailure: func(err error) {
				if errors.Is(err, boom) {
					failed.Add(1)
				}
			},
		})
	}
	js.Shutdown()
	js.Shutdown()

	assert.Equal(t, int32(16), ok.Load())
	assert.Equal(t, int32(4), failed.Load())
}
