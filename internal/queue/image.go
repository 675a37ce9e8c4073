package queue

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"scrub/internal/extract"
	"scrub/pkg/imgutil"
)

// State is the lifecycle position of a tracked image. Transitions only
// move forward; re-processing a file means removing and re-adding it.
type State int

const (
	StatePending State = iota
	StateScanning
	StateScanned
	StateCleaning
	StateCleaned
	StateError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateScanning:
		return "scanning"
	case StateScanned:
		return "scanned"
	case StateCleaning:
		return "cleaning"
	case StateCleaned:
		return "cleaned"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// canTransition encodes the forward-only state machine. The error state
// is terminal and reachable only while work is in flight.
func (s State) canTransition(to State) bool {
	if to == StateError {
		return s == StateScanning || s == StateCleaning
	}
	return to > s && s != StateError
}

// TrackedImage is one queue entry. Source is immutable for the entry's
// lifetime; Report and Cleaned are set at most once as the lifecycle
// advances.
type TrackedImage struct {
	ID          string
	Source      imgutil.SourceFile
	Preview     *Preview
	Report      *extract.Report
	Cleaned     []byte
	CleanedSize int64
	State       State
	ErrMsg      string
}

// newID returns a cryptographically random identifier, falling back to a
// timestamp+random string when the strong source is unavailable.
func newID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%d-%06d", time.Now().UnixNano(), rand.Intn(1000000))
	}
	return id.String()
}
