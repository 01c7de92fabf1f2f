package decode

import (
	"bytes"
	"math/rand"
	"reflect"
	"testing"
)

func symbolPulses(cfg Config, syms []byte) (pulses []Pulse) {
	level := true
	for _, s := range syms {
		duration := cfg.ShortPulse
		if s == 1 {
			duration = cfg.LongPulse
		}
		pulses = append(pulses, Pulse{level, duration})
		level = !level
	}
	return
}

func preambleSymbols(cfg Config) []byte {
	syms, _ := symbols(cfg.Preamble)
	return syms
}

func randomBits(rng *rand.Rand, n int) []byte {
	bits := make([]byte, n)
	for idx := range bits {
		bits[idx] = byte(rng.Intn(2))
	}
	return bits
}

func newRecoverer(t *testing.T, cfg Config) *Recoverer {
	t.Helper()
	r, err := NewRecoverer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func feedPulses(r *Recoverer, pulses []Pulse) (frames [][]byte) {
	for _, p := range pulses {
		if frame, ok := r.Feed(p); ok {
			frames = append(frames, frame)
		}
	}
	return
}

func TestPrefixTable(t *testing.T) {
	table := prefixTable([]byte{0, 0, 1, 0, 0, 1, 1})
	expected := []int{0, 1, 0, 1, 2, 3, 0}
	if !reflect.DeepEqual(table, expected) {
		t.Fatalf("expected %v got %v\n", expected, table)
	}
}

func TestRecovererFrame(t *testing.T) {
	cfg := NewConfig()
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 64; trial++ {
		r := newRecoverer(t, cfg)
		bits := randomBits(rng, FrameBits)

		pulses := []Pulse{{false, 200}}
		pulses = append(pulses, symbolPulses(cfg, append(preambleSymbols(cfg), bits...))...)

		frames := feedPulses(r, pulses)
		if len(frames) != 1 {
			t.Fatalf("expected 1 frame got %d\n", len(frames))
		}
		if !bytes.Equal(frames[0], bits) {
			t.Fatalf("expected %v got %v\n", bits, frames[0])
		}
		if r.State() != FrameReady {
			t.Fatalf("expected %s after frame got %s\n", FrameReady, r.State())
		}

		// Trailing silence returns the recoverer to Idle.
		if _, ok := r.Feed(Pulse{false, 200}); ok {
			t.Fatal("unexpected frame from trailing silence")
		}
		if r.State() != Idle {
			t.Fatalf("expected %s after silence got %s\n", Idle, r.State())
		}

		stats := r.Stats()
		if stats.Preambles != 1 || stats.Frames != 1 || stats.FramingErrors != 0 {
			t.Fatalf("unexpected stats: %+v\n", stats)
		}
	}
}

func TestRecovererTolerance(t *testing.T) {
	cfg := NewConfig()
	r := newRecoverer(t, cfg)
	rng := rand.New(rand.NewSource(2))

	bits := randomBits(rng, FrameBits)
	pulses := symbolPulses(cfg, append(preambleSymbols(cfg), bits...))

	// Stretch every pulse to the edges of its window.
	short, long := cfg.ShortWindow(), cfg.LongWindow()
	for idx := range pulses {
		w := short
		if pulses[idx].Duration == cfg.LongPulse {
			w = long
		}
		if idx%2 == 0 {
			pulses[idx].Duration = w.Lower
		} else {
			pulses[idx].Duration = w.Upper
		}
	}

	frames := feedPulses(r, pulses)
	if len(frames) != 1 || !bytes.Equal(frames[0], bits) {
		t.Fatalf("expected %v got %v\n", bits, frames)
	}
}

func TestRecovererAmbiguousPulse(t *testing.T) {
	cfg := NewConfig()
	short, long := cfg.ShortWindow(), cfg.LongWindow()

	for duration := short.Upper + 1; duration < long.Lower; duration++ {
		r := newRecoverer(t, cfg)

		pulses := symbolPulses(cfg, append(preambleSymbols(cfg), make([]byte, 20)...))
		if frames := feedPulses(r, pulses); len(frames) != 0 {
			t.Fatalf("unexpected frames: %v\n", frames)
		}
		if r.State() != Receiving {
			t.Fatalf("expected %s got %s\n", Receiving, r.State())
		}

		if frame, ok := r.Feed(Pulse{true, duration}); ok {
			t.Fatalf("ambiguous pulse %d produced frame %v\n", duration, frame)
		}
		if r.State() != Idle {
			t.Fatalf("expected %s after pulse %d got %s\n", Idle, duration, r.State())
		}
		if r.Stats().FramingErrors != 1 {
			t.Fatalf("expected 1 framing error got %d\n", r.Stats().FramingErrors)
		}

		// The remainder of the frame must not complete a partial buffer.
		rest := symbolPulses(cfg, make([]byte, FrameBits-20))
		if frames := feedPulses(r, rest); len(frames) != 0 {
			t.Fatalf("partial frame emitted: %v\n", frames)
		}
	}
}

func TestRecovererOverlappingPreamble(t *testing.T) {
	cfg := NewConfig()
	r := newRecoverer(t, cfg)

	// Extra clock pulses ahead of the preamble must not hide the sync byte.
	syms := append(make([]byte, 6), preambleSymbols(cfg)...)
	syms = append(syms, make([]byte, FrameBits)...)

	frames := feedPulses(r, symbolPulses(cfg, syms))
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame got %d\n", len(frames))
	}
}

func TestRecovererSyncLoss(t *testing.T) {
	cfg := NewConfig()
	r := newRecoverer(t, cfg)

	feedPulses(r, symbolPulses(cfg, preambleSymbols(cfg)[:10]))
	if r.State() != Sync {
		t.Fatalf("expected %s got %s\n", Sync, r.State())
	}

	r.Feed(Pulse{false, 100})
	if r.State() != Idle {
		t.Fatalf("expected %s got %s\n", Idle, r.State())
	}
}

func TestRecovererNoise(t *testing.T) {
	cfg := NewConfig()
	r := newRecoverer(t, cfg)
	rng := rand.New(rand.NewSource(3))

	level := true
	for idx := 0; idx < 1<<16; idx++ {
		if frame, ok := r.Feed(Pulse{level, rng.Intn(100) + 1}); ok {
			t.Fatalf("noise produced frame %v\n", frame)
		}
		level = !level
	}
}

func TestStateString(t *testing.T) {
	for state, expected := range map[State]string{
		Idle:       "IDLE",
		Sync:       "SYNC",
		Receiving:  "RECEIVING",
		FrameReady: "FRAME_READY",
		State(9):   "State(9)",
	} {
		if s := state.String(); s != expected {
			t.Fatalf("expected %s got %s\n", expected, s)
		}
	}
}
