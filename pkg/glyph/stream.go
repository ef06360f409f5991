package glyph

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Producer turns one Job into a Descriptor. *Generator is the production
// implementation.
type Producer interface {
	Generate(ctx context.Context, job Job) (Descriptor, error)
}

type result struct {
	desc Descriptor
	err  error
}

// Stream yields the descriptors of a job list in job order.
//
// Jobs are rendered on a bounded worker pool, with at most 2*workers jobs in
// flight or waiting to be consumed, so nothing is rendered far ahead of the
// consumer. The first failure cancels outstanding work. A Stream is single-use:
// once Next returns false it stays false.
type Stream struct {
	results    []chan result
	window     chan struct{}
	dispatched chan struct{}
	group      *errgroup.Group
	cancel     context.CancelFunc

	next int
	cur  Descriptor
	err  error
	done bool
}

// NewStream starts generating jobs with the given number of workers
// (at least one). Callers must drain the stream or call Close.
func NewStream(ctx context.Context, p Producer, jobs []Job, workers int) *Stream {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	s := &Stream{
		results:    make([]chan result, len(jobs)),
		window:     make(chan struct{}, 2*workers),
		dispatched: make(chan struct{}),
		group:      group,
		cancel:     cancel,
	}
	for i := range s.results {
		s.results[i] = make(chan result, 1)
	}

	go s.dispatch(gctx, p, jobs)
	return s
}

func (s *Stream) dispatch(ctx context.Context, p Producer, jobs []Job) {
	defer close(s.dispatched)

	for i, job := range jobs {
		select {
		case s.window <- struct{}{}:
		case <-ctx.Done():
		}
		if err := ctx.Err(); err != nil {
			s.results[i] <- result{err: err}
			continue
		}

		out := s.results[i]
		s.group.Go(func() error {
			desc, err := p.Generate(ctx, job)
			out <- result{desc: desc, err: err}
			return err
		})
	}
}

// Next advances to the next descriptor. It returns false at the end of the
// jobs or on the first error; check Err afterwards.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	if s.next >= len(s.results) {
		s.finish(nil)
		return false
	}

	r := <-s.results[s.next]
	s.next++
	// Free the slot this job held; skipped jobs never took one.
	select {
	case <-s.window:
	default:
	}

	if r.err != nil {
		s.finish(r.err)
		return false
	}
	s.cur = r.desc
	return true
}

// Descriptor returns the descriptor produced by the last successful Next.
func (s *Stream) Descriptor() Descriptor {
	return s.cur
}

// Err returns the error that ended the stream, if any. When several jobs fail
// the root cause is reported rather than the cancellations it triggered.
func (s *Stream) Err() error {
	return s.err
}

// Close stops outstanding work and waits for the workers to exit. It is safe
// to call more than once and after the stream is exhausted.
func (s *Stream) Close() {
	if s.done {
		return
	}
	s.done = true
	s.cancel()
	<-s.dispatched
	_ = s.group.Wait()
}

func (s *Stream) finish(itemErr error) {
	s.done = true
	if itemErr != nil {
		s.cancel()
	}
	<-s.dispatched
	groupErr := s.group.Wait()
	s.cancel()

	if groupErr != nil {
		s.err = groupErr
	} else {
		s.err = itemErr
	}
}

// Collect drains s into a slice. On error the partial result is discarded.
func Collect(s *Stream) ([]Descriptor, error) {
	defer s.Close()

	var out []Descriptor
	for s.Next() {
		out = append(out, s.Descriptor())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
