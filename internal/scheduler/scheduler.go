// Package scheduler is the bounded-concurrency job pool that runs parse
// jobs under a PCH ordering constraint: a job depending on a
// precompiled header parks until every in-flight job building that
// header completes, implemented with golang.org/x/sync/semaphore for
// the concurrency cap instead of a hand-rolled condition variable and
// worker thread list.
package scheduler

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cindexd/cindexd/internal/indexjob"
)

// RunFunc executes one job's parse/diagnose/visit phases, consulting
// cancel at each phase boundary the way indexjob.Job.Run does. The
// scheduler never constructs clangidx/indexjob values itself; the
// caller supplies a closure bound to its own *clangidx.Index so the
// scheduler stays ignorant of libclang entirely.
type RunFunc func(cancel indexjob.CancelFunc) (*indexjob.IndexData, error)

// Request describes one source file to index.
type Request struct {
	Path    string
	FileID  uint32
	IsPCH   bool
	PCHDeps []uint32
	Run     RunFunc
}

// CompletedJob is handed to OnComplete once a job's Run has returned.
type CompletedJob struct {
	JobID   int64
	Request Request
	Data    *indexjob.IndexData
	Err     error
}

// QuiescenceStats is recorded every time the scheduler drains to empty:
// no in-flight jobs, no parked PCH-waiters, nothing pending dispatch.
type QuiescenceStats struct {
	JobsRun int
	Elapsed time.Duration
}

type trackedJob struct {
	id        int64
	req       Request
	cancelled int32
}

func (j *trackedJob) cancel() {
	atomic.StoreInt32(&j.cancelled, 1)
}

func (j *trackedJob) isCancelled() bool {
	return atomic.LoadInt32(&j.cancelled) != 0
}

// Scheduler is the admission/dispatch/completion state machine that
// governs concurrent indexing jobs. The zero value is not usable;
// construct with New.
type Scheduler struct {
	mu  sync.Mutex
	sem *semaphore.Weighted

	nextJobID int64

	// inFlightByPath dedupes admission: a source file already being
	// indexed is not indexed again (rule "admission").
	inFlightByPath map[string]int64
	inFlight       map[int64]*trackedJob

	// waitingForPCH holds jobs parked because a PCH dependency is
	// itself currently in-flight (rule "PCH barrier").
	waitingForPCH map[int64]*trackedJob

	// inFlightPCHFileIDs is the set of file ids of PCH builds
	// currently in flight, checked by the PCH barrier rule and
	// re-examined on every PCH job's completion.
	inFlightPCHFileIDs map[uint32]struct{}

	jobsRun     int
	firstActive time.Time
	active      bool

	// OnComplete is invoked (off the scheduler's lock) once a job's
	// Run returns, success or failure. Typically wired to hand the
	// bundle to the merge engine.
	OnComplete func(CompletedJob)

	// OnQuiescent is invoked once every time the scheduler drains to
	// fully empty, mirroring the jobsComplete signal.
	OnQuiescent func(QuiescenceStats)
}

// New creates a Scheduler with the given worker concurrency cap. A
// workers value <= 0 defaults to runtime.NumCPU(), matching the
// original's idealThreadCount() default.
func New(workers int) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scheduler{
		sem:                semaphore.NewWeighted(int64(workers)),
		inFlightByPath:     make(map[string]int64),
		inFlight:           make(map[int64]*trackedJob),
		waitingForPCH:      make(map[int64]*trackedJob),
		inFlightPCHFileIDs: make(map[uint32]struct{}),
	}
}

// SetWorkers changes the concurrency cap. Jobs already dispatched
// against the old semaphore run to completion under the old cap;
// every job dispatched after this call observes the new one.
func (s *Scheduler) SetWorkers(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sem = semaphore.NewWeighted(int64(n))
}

// Enqueue admits req. Returns -1 if req.Path is already in-flight or
// parked (rule "admission": silently deduplicated), otherwise the new
// job's id. The job is dispatched immediately unless it is parked
// behind a PCH barrier.
func (s *Scheduler) Enqueue(req Request) int64 {
	s.mu.Lock()

	if _, inFlight := s.inFlightByPath[req.Path]; inFlight {
		s.mu.Unlock()
		return -1
	}
	for _, j := range s.waitingForPCH {
		if j.req.Path == req.Path {
			s.mu.Unlock()
			return -1
		}
	}

	id := s.nextJobID
	s.nextJobID++
	job := &trackedJob{id: id, req: req}

	s.markActive()

	if s.pchBarrierBlocks(req) {
		s.waitingForPCH[id] = job
		s.mu.Unlock()
		return id
	}

	s.dispatch(job)
	s.mu.Unlock()
	return id
}

// pchBarrierBlocks reports whether any of req's declared PCH
// dependencies is itself currently being built. Caller holds s.mu.
func (s *Scheduler) pchBarrierBlocks(req Request) bool {
	for _, dep := range req.PCHDeps {
		if _, building := s.inFlightPCHFileIDs[dep]; building {
			return true
		}
	}
	return false
}

// dispatch hands job to the worker pool. Caller holds s.mu.
func (s *Scheduler) dispatch(job *trackedJob) {
	s.inFlightByPath[job.req.Path] = job.id
	s.inFlight[job.id] = job
	if job.req.IsPCH {
		s.inFlightPCHFileIDs[job.req.FileID] = struct{}{}
	}
	go s.run(job)
}

func (s *Scheduler) run(job *trackedJob) {
	if err := s.sem.Acquire(context.Background(), 1); err != nil {
		s.complete(job, nil, err)
		return
	}
	defer s.sem.Release(1)

	data, err := job.req.Run(job.isCancelled)
	s.complete(job, data, err)
}

func (s *Scheduler) complete(job *trackedJob, data *indexjob.IndexData, err error) {
	s.mu.Lock()

	delete(s.inFlightByPath, job.req.Path)
	delete(s.inFlight, job.id)
	if job.req.IsPCH {
		delete(s.inFlightPCHFileIDs, job.req.FileID)
	}
	s.jobsRun++

	// Dispatching any newly-released PCH dependents before computing
	// quiescence matters: otherwise a PCH completion with dependents
	// parked behind it would momentarily look like a fully-drained
	// scheduler between releasing them from waitingForPCH and actually
	// starting them.
	if job.req.IsPCH {
		for _, r := range s.releaseWaitingFor(job) {
			s.dispatch(r)
		}
	}

	onComplete := s.OnComplete
	stats, quiescent := s.checkQuiescence()
	onQuiescent := s.OnQuiescent

	s.mu.Unlock()

	if onComplete != nil {
		onComplete(CompletedJob{JobID: job.id, Request: job.req, Data: data, Err: err})
	}
	if quiescent && onQuiescent != nil {
		onQuiescent(stats)
	}
}

// releaseWaitingFor re-examines waitingForPCH after a PCH job
// completes (rule "completion"): any parked job whose PCH dependency
// set no longer intersects any in-flight PCH build is released from
// the park and returned for dispatch by the caller, which dispatches
// them while still holding s.mu (dispatch itself takes no lock). Caller
// holds s.mu.
func (s *Scheduler) releaseWaitingFor(completed *trackedJob) []*trackedJob {
	var released []*trackedJob
	for id, job := range s.waitingForPCH {
		if s.pchBarrierBlocks(job.req) {
			continue
		}
		delete(s.waitingForPCH, id)
		released = append(released, job)
	}
	return released
}

// checkQuiescence reports quiescence stats and whether the scheduler
// has just drained to fully empty. Caller holds s.mu.
func (s *Scheduler) checkQuiescence() (QuiescenceStats, bool) {
	if len(s.inFlight) > 0 || len(s.waitingForPCH) > 0 {
		return QuiescenceStats{}, false
	}
	if !s.active {
		return QuiescenceStats{}, false
	}
	stats := QuiescenceStats{JobsRun: s.jobsRun, Elapsed: time.Since(s.firstActive)}
	s.active = false
	s.jobsRun = 0
	return stats, true
}

// markActive records the wall-clock start of a busy period, the first
// time the scheduler transitions from empty to non-empty. Caller
// holds s.mu.
func (s *Scheduler) markActive() {
	if !s.active {
		s.active = true
		s.firstActive = time.Now()
	}
}

// Abort cancels jobID cooperatively: an in-flight job observes
// cancellation at its next phase boundary; a parked job is discarded
// outright and reported to OnComplete with a nil Data and the caller's
// err (typically a cxierr.CancelRequested).
func (s *Scheduler) Abort(jobID int64, cancelErr error) {
	s.mu.Lock()
	if job, ok := s.inFlight[jobID]; ok {
		job.cancel()
		s.mu.Unlock()
		return
	}
	job, ok := s.waitingForPCH[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.waitingForPCH, jobID)
	stats, quiescent := s.checkQuiescence()
	onComplete := s.OnComplete
	onQuiescent := s.OnQuiescent
	s.mu.Unlock()

	if onComplete != nil {
		onComplete(CompletedJob{JobID: jobID, Request: job.req, Err: cancelErr})
	}
	if quiescent && onQuiescent != nil {
		onQuiescent(stats)
	}
}

// AbortAll cancels every in-flight job and discards every parked job,
// matching abort()'s "scheduler discards all parked jobs" contract.
func (s *Scheduler) AbortAll(cancelErr error) {
	s.mu.Lock()
	for _, job := range s.inFlight {
		job.cancel()
	}
	parked := make([]*trackedJob, 0, len(s.waitingForPCH))
	for id, job := range s.waitingForPCH {
		parked = append(parked, job)
		delete(s.waitingForPCH, id)
	}
	onComplete := s.OnComplete
	s.mu.Unlock()

	if onComplete != nil {
		for _, job := range parked {
			onComplete(CompletedJob{JobID: job.id, Request: job.req, Err: cancelErr})
		}
	}
}

// InFlightCount reports the number of jobs currently dispatched.
func (s *Scheduler) InFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// WaitingForPCHCount reports the number of jobs parked behind the PCH
// barrier.
func (s *Scheduler) WaitingForPCHCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waitingForPCH)
}
