// Package reconcile picks the authoritative record among the candidates a
// multi-value read returned.
//
// Every candidate is read exactly once, then the results are reduced to the
// record with the greatest version. Unreadable candidates are counted and
// skipped; they never abort the selection.
package reconcile

import (
	"errors"
	"math"

	"github.com/amaydixit11/urlshare/internal/envelope"
	"github.com/amaydixit11/urlshare/internal/record"
)

// ErrVersionExhausted means the slot's current version cannot be exceeded.
var ErrVersionExhausted = errors.New("slot version exhausted")

// Reader reads one blob. record.Transport implements it.
type Reader interface {
	Read(blob []byte) record.Result
}

// State summarises what a slot held.
type State uint8

const (
	// Empty means the substrate returned no values.
	Empty State = iota
	// Unreadable means values exist but none could be read.
	Unreadable
	// Found means at least one value was read.
	Found
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Unreadable:
		return "unreadable"
	default:
		return "found"
	}
}

// Report counts candidates by outcome.
type Report struct {
	Candidates int
	Plain      int
	Encrypted  int
	Unreadable int

	// Winner is the index of the selected candidate, or -1.
	Winner     int
	WinnerKind record.Kind
}

// State distinguishes an empty slot from one holding only unreadable values.
func (r Report) State() State {
	switch {
	case r.Candidates == 0:
		return Empty
	case r.Plain+r.Encrypted == 0:
		return Unreadable
	default:
		return Found
	}
}

// ReadAll reads every blob once.
func ReadAll(rd Reader, blobs [][]byte) []record.Result {
	results := make([]record.Result, len(blobs))
	for i, b := range blobs {
		results[i] = rd.Read(b)
	}
	return results
}

// Select returns the readable result with the strictly greatest version.
// Among equal versions the earliest candidate wins.
func Select(results []record.Result) (envelope.Record, bool) {
	i := selectIndex(results)
	if i < 0 {
		return envelope.Record{}, false
	}
	return results[i].Record, true
}

func selectIndex(results []record.Result) int {
	best := -1
	for i, res := range results {
		if !res.OK() {
			continue
		}
		if best < 0 || res.Record.Version > results[best].Record.Version {
			best = i
		}
	}
	return best
}

// SelectCurrent reads blobs and selects the current record.
func SelectCurrent(rd Reader, blobs [][]byte) (envelope.Record, bool, Report) {
	results := ReadAll(rd, blobs)

	report := Report{Candidates: len(results), Winner: -1}
	for _, res := range results {
		switch res.Kind {
		case record.Plain:
			report.Plain++
		case record.Encrypted:
			report.Encrypted++
		default:
			report.Unreadable++
		}
	}

	i := selectIndex(results)
	if i < 0 {
		return envelope.Record{}, false, report
	}
	report.Winner = i
	report.WinnerKind = results[i].Kind
	return results[i].Record, true, report
}

// NextVersion is the version the next publish should use. It fails with
// ErrVersionExhausted when current already holds the largest version.
func NextVersion(current envelope.Record, ok bool) (uint64, error) {
	if !ok {
		return 0, nil
	}
	if current.Version == math.MaxUint64 {
		return 0, ErrVersionExhausted
	}
	return current.Version + 1, nil
}
