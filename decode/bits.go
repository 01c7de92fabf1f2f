package decode

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

type State int

const (
	Idle State = iota
	Sync
	Receiving
	FrameReady
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Sync:
		return "SYNC"
	case Receiving:
		return "RECEIVING"
	case FrameReady:
		return "FRAME_READY"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Stats counts recoverer events since construction.
type Stats struct {
	Pulses        uint64
	Preambles     uint64
	FramingErrors uint64
	Frames        uint64
}

// Recoverer classifies pulses into bits, searches for the preamble and
// assembles frames of FrameBits bits. It keeps no clock of its own, every
// decision is made from pulse durations.
type Recoverer struct {
	short, long Window

	preamble []byte
	// fallback[i] is the length of the longest proper prefix of
	// preamble[:i+1] that is also a suffix of it.
	fallback []int

	state   State
	matched int
	bits    []byte

	stats Stats
}

func NewRecoverer(cfg Config) (*Recoverer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	preamble, _ := symbols(cfg.Preamble)

	return &Recoverer{
		short:    cfg.ShortWindow(),
		long:     cfg.LongWindow(),
		preamble: preamble,
		fallback: prefixTable(preamble),
		bits:     make([]byte, 0, FrameBits),
	}, nil
}

func prefixTable(pattern []byte) []int {
	table := make([]int, len(pattern))
	k := 0
	for idx := 1; idx < len(pattern); idx++ {
		for k > 0 && pattern[idx] != pattern[k] {
			k = table[k-1]
		}
		if pattern[idx] == pattern[k] {
			k++
		}
		table[idx] = k
	}
	return table
}

func (r *Recoverer) classify(duration int) (bit byte, ok bool) {
	switch {
	case r.short.Contains(duration):
		return 0, true
	case r.long.Contains(duration):
		return 1, true
	}
	return 0, false
}

func (r *Recoverer) State() State {
	return r.state
}

func (r *Recoverer) Stats() Stats {
	return r.stats
}

func (r *Recoverer) reset() {
	r.state = Idle
	r.matched = 0
	r.bits = r.bits[:0]
}

// Feed advances the state machine by one pulse. When a frame completes its
// bits are returned, one bit per byte, and the recoverer stays in FrameReady
// until the next pulse returns it to Idle.
func (r *Recoverer) Feed(p Pulse) (frame []byte, ok bool) {
	r.stats.Pulses++

	// A delivered frame is never retried, the next pulse starts from Idle.
	if r.state == FrameReady {
		r.reset()
	}

	bit, valid := r.classify(p.Duration)

	switch r.state {
	case Idle, Sync:
		if !valid {
			r.reset()
			return
		}

		for r.matched > 0 && r.preamble[r.matched] != bit {
			r.matched = r.fallback[r.matched-1]
		}
		if r.preamble[r.matched] == bit {
			r.matched++
		}

		switch {
		case r.matched == len(r.preamble):
			r.stats.Preambles++
			r.state = Receiving
			r.matched = 0
			r.bits = r.bits[:0]
		case r.matched > 0:
			r.state = Sync
		default:
			r.state = Idle
		}

	case Receiving:
		if !valid {
			r.stats.FramingErrors++
			logrus.WithFields(logrus.Fields{
				"pulse": p,
				"bits":  len(r.bits),
			}).Trace("framing error")
			r.reset()
			return
		}

		r.bits = append(r.bits, bit)
		if len(r.bits) < FrameBits {
			return
		}

		r.state = FrameReady
		r.stats.Frames++

		frame = make([]byte, len(r.bits))
		copy(frame, r.bits)

		return frame, true
	}

	return
}
