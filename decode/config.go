package decode

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Frame layout: 24-bit device id, 8-bit status and a 16-bit checksum.
const (
	IDBits       = 24
	StatusBits   = 8
	ChecksumBits = 16
	FrameBits    = IDBits + StatusBits + ChecksumBits
)

// On-air pulse widths. ShortPulse and LongPulse must land on these once
// converted to time at SampleRate/Decimation bins per second.
const (
	ShortPulseTime = 190 * time.Microsecond
	LongPulseTime  = 380 * time.Microsecond
)

var (
	ErrOverlap  = xerrors.New("short and long pulse windows overlap")
	ErrPreamble = xerrors.New("preamble must be a non-empty string of 0 and 1")
	ErrTiming   = xerrors.New("pulse lengths do not match sample rate and decimation")
)

// Config holds every tunable of the decoder. Durations are counted in power
// bins, one bin per Decimation raw samples.
type Config struct {
	CenterFreq uint32 `toml:"center_freq"`
	SampleRate uint32 `toml:"sample_rate"`

	// Number of raw IQ samples averaged into each power bin.
	Decimation int `toml:"decimation"`

	// A bin is carrier when its power exceeds baseline * ThresholdFactor.
	ThresholdFactor float64 `toml:"threshold_factor"`
	// Length in bins of the exponential moving average tracking noise power.
	BaselineWindow int `toml:"baseline_window"`
	// Lower bound for the baseline so silence never looks like carrier.
	NoiseFloor float64 `toml:"noise_floor"`

	// Runs shorter than MinPulse are folded into their neighbours.
	MinPulse int `toml:"min_pulse"`

	ShortPulse int     `toml:"short_pulse"`
	LongPulse  int     `toml:"long_pulse"`
	Tolerance  float64 `toml:"tolerance"`

	// Sync pattern, one symbol per pulse: 0 is short, 1 is long.
	Preamble string `toml:"preamble"`
}

// NewConfig returns the defaults for a 1MS/s capture of 5800 series sensors.
func NewConfig() (cfg Config) {
	cfg.CenterFreq = 345000000
	cfg.SampleRate = 1000000
	cfg.Decimation = 19

	cfg.ThresholdFactor = 8
	cfg.BaselineWindow = 512
	cfg.NoiseFloor = 1e-3

	cfg.MinPulse = 3
	cfg.ShortPulse = 10
	cfg.LongPulse = 20
	cfg.Tolerance = 0.25

	cfg.Preamble = "000000000000000011111110"

	return
}

// Window is an inclusive range of pulse durations.
type Window struct {
	Lower, Upper int
}

func (w Window) Contains(duration int) bool {
	return w.Lower <= duration && duration <= w.Upper
}

// Edges that land on an integer within edgeEpsilon are that integer, so
// nominal*(1±tolerance) is inside the window even when the product rounds
// just past it.
const edgeEpsilon = 1e-9

func window(nominal int, tolerance float64) Window {
	lower := float64(nominal) * (1 - tolerance)
	upper := float64(nominal) * (1 + tolerance)
	return Window{
		Lower: int(math.Ceil(lower - edgeEpsilon)),
		Upper: int(math.Floor(upper + edgeEpsilon)),
	}
}

func (cfg Config) ShortWindow() Window {
	return window(cfg.ShortPulse, cfg.Tolerance)
}

func (cfg Config) LongWindow() Window {
	return window(cfg.LongPulse, cfg.Tolerance)
}

// BinDuration is the time spanned by one power bin.
func (cfg Config) BinDuration() time.Duration {
	return time.Duration(cfg.Decimation) * time.Second / time.Duration(cfg.SampleRate)
}

// Validate rejects configurations the decoder cannot run with.
func (cfg Config) Validate() error {
	switch {
	case cfg.SampleRate == 0:
		return xerrors.New("sample rate must be positive")
	case cfg.Decimation < 1:
		return xerrors.Errorf("decimation must be positive: %d", cfg.Decimation)
	case cfg.ThresholdFactor <= 1:
		return xerrors.Errorf("threshold factor must exceed 1: %g", cfg.ThresholdFactor)
	case cfg.BaselineWindow < 1:
		return xerrors.Errorf("baseline window must be positive: %d", cfg.BaselineWindow)
	case cfg.NoiseFloor <= 0:
		return xerrors.Errorf("noise floor must be positive: %g", cfg.NoiseFloor)
	case cfg.Tolerance <= 0 || cfg.Tolerance >= 1:
		return xerrors.Errorf("tolerance must be within (0, 1): %g", cfg.Tolerance)
	case cfg.ShortPulse < 1 || cfg.LongPulse <= cfg.ShortPulse:
		return xerrors.Errorf("pulse lengths must satisfy 0 < short < long: %d, %d", cfg.ShortPulse, cfg.LongPulse)
	}

	short, long := cfg.ShortWindow(), cfg.LongWindow()
	if short.Lower > short.Upper || short.Upper >= long.Lower {
		return xerrors.Errorf("short %+v long %+v: %w", short, long, ErrOverlap)
	}

	for _, p := range []struct {
		bins    int
		nominal time.Duration
	}{
		{cfg.ShortPulse, ShortPulseTime},
		{cfg.LongPulse, LongPulseTime},
	} {
		d := cfg.BinDuration() * time.Duration(p.bins)
		if math.Abs(float64(d-p.nominal)) > float64(p.nominal)*cfg.Tolerance {
			return xerrors.Errorf("%d bins at %d/%d is %s, expected %s: %w",
				p.bins, cfg.SampleRate, cfg.Decimation, d, p.nominal, ErrTiming)
		}
	}

	if cfg.MinPulse < 1 || cfg.MinPulse > short.Lower {
		return xerrors.Errorf("min pulse must be within [1, %d]: %d", short.Lower, cfg.MinPulse)
	}

	if _, err := symbols(cfg.Preamble); err != nil {
		return err
	}

	return nil
}

func symbols(pattern string) ([]byte, error) {
	if len(pattern) == 0 {
		return nil, ErrPreamble
	}

	syms := make([]byte, len(pattern))
	for idx := range pattern {
		switch pattern[idx] {
		case '0':
		case '1':
			syms[idx] = 1
		default:
			return nil, xerrors.Errorf("%q: %w", pattern, ErrPreamble)
		}
	}

	return syms, nil
}

func (cfg Config) Log() {
	logrus.WithFields(logrus.Fields{
		"centerfreq": cfg.CenterFreq,
		"samplerate": cfg.SampleRate,
		"decimation": cfg.Decimation,
	}).Info("radio")
	logrus.WithFields(logrus.Fields{
		"threshold": cfg.ThresholdFactor,
		"window":    cfg.BaselineWindow,
		"floor":     cfg.NoiseFloor,
	}).Info("energy detector")
	logrus.WithFields(logrus.Fields{
		"minpulse": cfg.MinPulse,
		"short":    cfg.ShortWindow(),
		"long":     cfg.LongWindow(),
		"preamble": cfg.Preamble,
		"frame":    FrameBits,
	}).Info("bit recovery")
}
