// Package queue owns the set of tracked images and their lifecycle. It
// is the single writer of queue state: scans and cleans are called as
// pure functions, every mutation happens here, and observers only ever
// see copies.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"scrub/internal/entitlement"
	"scrub/internal/extract"
	"scrub/internal/normalize"
	"scrub/internal/pipeline"
	"scrub/pkg/imgutil"
)

var (
	// ErrUnsupportedFormat rejects a file before admission.
	ErrUnsupportedFormat = errors.New("unsupported file type")
	// ErrLimitReached rejects additions past the unentitled batch limit.
	ErrLimitReached = errors.New("batch limit reached")
)

// ProgressUpdate is a delta emitted to the presentation layer.
type ProgressUpdate struct {
	AddedDelta   int
	ScannedDelta int
	ThreatDelta  int
	CleanedDelta int
	ErrorDelta   int
	BytesDelta   int64
}

// Rejected names a file that was not admitted and why.
type Rejected struct {
	Name   string
	Reason error
}

// AddResult reports the outcome of one AddFiles call.
type AddResult struct {
	Added    []string
	Rejected []Rejected
}

// CleanSummary aggregates one CleanAll run.
type CleanSummary struct {
	Total   int
	Cleaned int
	Failed  int
}

// ProgressFn observes the {current, total} clean counter. It is invoked
// after every item, success or failure.
type ProgressFn func(current, total int)

// Queue sequences scan and clean work over tracked images. Scan batches
// drain strictly FIFO with at most one drain in flight; cleans run
// strictly sequentially. Both invariants trade throughput for
// predictable peak memory.
type Queue struct {
	mu      sync.Mutex
	idle    *sync.Cond
	gate    *entitlement.Gate
	log     zerolog.Logger
	updates chan<- ProgressUpdate

	images   []TrackedImage
	batches  [][]string
	draining bool
}

// New builds a queue around an entitlement gate. updates may be nil.
func New(gate *entitlement.Gate, log zerolog.Logger, updates chan<- ProgressUpdate) *Queue {
	q := &Queue{gate: gate, log: log, updates: updates}
	q.idle = sync.NewCond(&q.mu)
	return q
}

func (q *Queue) emit(u ProgressUpdate) {
	if q.updates != nil {
		q.updates <- u
	}
}

// AddFiles filters, admits, and enqueues files as one scan batch.
// Unsupported types are rejected per file. When the profile is not
// entitled, admissions past the limit are rejected whole, never
// partially truncated into the existing queue.
func (q *Queue) AddFiles(files []imgutil.SourceFile) AddResult {
	var res AddResult

	q.mu.Lock()
	count := len(q.images)
	entitled := q.gate.Entitled()
	limit := q.gate.Limit()

	var admitted []TrackedImage
	var batch []string
	for _, f := range files {
		if !imgutil.IsSupported(f.Name, f.DeclaredType) {
			res.Rejected = append(res.Rejected, Rejected{Name: f.Name, Reason: ErrUnsupportedFormat})
			continue
		}
		if !entitled && count >= limit {
			res.Rejected = append(res.Rejected, Rejected{Name: f.Name, Reason: ErrLimitReached})
			continue
		}
		img := TrackedImage{
			ID:      newID(),
			Source:  f,
			Preview: newPreview(f.Data),
			State:   StatePending,
		}
		admitted = append(admitted, img)
		batch = append(batch, img.ID)
		res.Added = append(res.Added, img.ID)
		count++
	}

	startDrain := false
	if len(admitted) > 0 {
		next := make([]TrackedImage, 0, len(q.images)+len(admitted))
		next = append(next, q.images...)
		next = append(next, admitted...)
		q.images = next
		q.batches = append(q.batches, batch)
		if !q.draining {
			q.draining = true
			startDrain = true
		}
	}
	q.mu.Unlock()

	q.log.Debug().
		Int("added", len(res.Added)).
		Int("rejected", len(res.Rejected)).
		Msg("files admitted")
	q.emit(ProgressUpdate{AddedDelta: len(res.Added)})

	if startDrain {
		go q.drain()
	}
	return res
}

// drain processes pending scan batches one at a time, files strictly in
// insertion order. New batches arriving mid-drain queue behind the
// active one and are never interleaved.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.batches) == 0 {
			q.draining = false
			q.idle.Broadcast()
			q.mu.Unlock()
			return
		}
		batch := q.batches[0]
		q.batches = q.batches[1:]
		q.mu.Unlock()

		for _, id := range batch {
			img, ok := q.Get(id)
			if !ok {
				// Removed while queued; nothing to associate the
				// result with, so the id is dropped silently.
				continue
			}
			if !q.transition(id, StateScanning) {
				continue
			}

			report := extract.Extract(img.Source.Data)
			q.update(id, func(t *TrackedImage) {
				t.Report = &report
				t.State = StateScanned
			})

			q.log.Debug().
				Str("file", img.Source.Name).
				Str("level", report.Level().String()).
				Int("threats", len(report.Threats)).
				Msg("scan complete")
			q.emit(ProgressUpdate{ScannedDelta: 1, ThreatDelta: len(report.Threats)})
		}
	}
}

// WaitIdle blocks until no scan drain is active and no batch is pending.
func (q *Queue) WaitIdle() {
	q.mu.Lock()
	for q.draining {
		q.idle.Wait()
	}
	q.mu.Unlock()
}

// CleanAll re-encodes every entry not already cleaned or failed,
// strictly sequentially. A failed item is recorded and skipped over;
// siblings in the same run are unaffected.
func (q *Queue) CleanAll(ctx context.Context, progress ProgressFn) CleanSummary {
	var targets []string
	for _, img := range q.Snapshot() {
		if img.State != StateCleaned && img.State != StateError {
			targets = append(targets, img.ID)
		}
	}

	summary := CleanSummary{Total: len(targets)}
	done := 0
	for _, id := range targets {
		done++
		img, ok := q.Get(id)
		if !ok || !q.transition(id, StateCleaning) {
			if progress != nil {
				progress(done, summary.Total)
			}
			continue
		}

		cleaned, err := pipeline.Reencode(ctx, img.Source)
		if err != nil {
			summary.Failed++
			msg := cleanErrorMessage(err)
			q.update(id, func(t *TrackedImage) {
				t.State = StateError
				t.ErrMsg = msg
			})
			q.log.Warn().Str("file", img.Source.Name).Err(err).Msg("clean failed")
			q.emit(ProgressUpdate{ErrorDelta: 1})
		} else {
			summary.Cleaned++
			q.update(id, func(t *TrackedImage) {
				t.Cleaned = cleaned
				t.CleanedSize = int64(len(cleaned))
				t.State = StateCleaned
			})
			q.log.Debug().
				Str("file", img.Source.Name).
				Int64("bytes", img.Source.Size()-int64(len(cleaned))).
				Msg("clean complete")
			q.emit(ProgressUpdate{
				CleanedDelta: 1,
				BytesDelta:   img.Source.Size() - int64(len(cleaned)),
			})
		}

		if progress != nil {
			progress(done, summary.Total)
		}
	}

	return summary
}

// cleanErrorMessage maps a pipeline failure to the message stored on the
// failed entry.
func cleanErrorMessage(err error) string {
	switch {
	case errors.Is(err, normalize.ErrFormatUnsupported):
		return "this runtime cannot convert HEIC/HEIF images"
	case errors.Is(err, pipeline.ErrTimeout):
		return "processing took too long and was stopped"
	case errors.Is(err, pipeline.ErrInvalidImage):
		return "the image could not be decoded"
	case errors.Is(err, pipeline.ErrEncodeFailure):
		return "the cleaned image could not be encoded"
	default:
		return "processing failed"
	}
}

// Remove deletes one entry and releases its preview immediately. An
// in-flight scan of the removed id completes as a no-op.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := make([]TrackedImage, 0, len(q.images))
	for _, img := range q.images {
		if img.ID == id {
			img.Preview.Release()
			continue
		}
		next = append(next, img)
	}
	q.images = next
}

// Clear removes every entry, releases all previews, and voids pending
// scan batches so orphaned entries are never scanned after removal.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, img := range q.images {
		img.Preview.Release()
	}
	q.images = nil
	q.batches = nil
}

// Snapshot returns a copy of the tracked list for observers.
func (q *Queue) Snapshot() []TrackedImage {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]TrackedImage, len(q.images))
	copy(out, q.images)
	return out
}

// Get returns a copy of one entry by id.
func (q *Queue) Get(id string) (TrackedImage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, img := range q.images {
		if img.ID == id {
			return img, true
		}
	}
	return TrackedImage{}, false
}

// Len reports the number of tracked entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.images)
}

// update applies fn to the entry with the given id, replacing the whole
// list so observers holding an old snapshot stay consistent. Unmatched
// ids are dropped silently.
func (q *Queue) update(id string, fn func(*TrackedImage)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.images {
		if q.images[i].ID != id {
			continue
		}
		next := make([]TrackedImage, len(q.images))
		copy(next, q.images)
		fn(&next[i])
		q.images = next
		return true
	}
	return false
}

// transition advances an entry's state, refusing backward moves.
func (q *Queue) transition(id string, to State) bool {
	moved := false
	q.update(id, func(t *TrackedImage) {
		if t.State.canTransition(to) {
			t.State = to
			moved = true
		}
	})
	return moved
}
