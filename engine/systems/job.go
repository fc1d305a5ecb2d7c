package systems

import (
	"errors"
	"sync"

	"github.com/spaghettifunk/vkmesh/engine/core"
)

/**
 * @brief A unit of work for the job system. Run is required, the callbacks
 * are optional and run on the worker that executed the job.
 */
type Job struct {
	Name      string
	Run       func() error
	OnSuccess func()
	OnFailure func(err error)
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

var ErrNoWorkers = errors.New("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.Run(); err != nil {
					core.LogError("job '%s' failed: %s", job.Name, err)
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
					continue
				}
				if job.OnSuccess != nil {
					job.OnSuccess()
				}
			}
		}()
	}
}

/**
 * @brief Submits the job and blocks while the queue is full.
 */
func (js *JobSystem) Submit(job Job) {
	js.jobQueue <- job
}

/**
 * @brief Stops accepting jobs and waits for the queued ones to finish.
 */
func (js *JobSystem) Shutdown() {
	js.closeOnce.Do(func() { close(js.jobQueue) })
	js.wg.Wait()
}
