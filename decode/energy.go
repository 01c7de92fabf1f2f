package decode

// A Demodulator knows how to demodulate an array of uint8 IQ samples into an
// array of float64 power bins.
type Demodulator interface {
	Execute([]byte, []float64) int
}

// BoxcarMag averages Decimation complex samples and outputs the squared
// magnitude of the average. Partial sums, and a dangling I byte, carry over
// between calls so block boundaries do not disturb bin alignment.
type BoxcarMag struct {
	lut        [0x100]float64
	decimation int

	i, q float64
	n    int

	half    byte
	hasHalf bool
}

// Pre-computes normalized components with most common DC offset for rtl-sdr dongles.
func NewBoxcarMag(decimation int) *BoxcarMag {
	bm := &BoxcarMag{decimation: decimation}
	for idx := range bm.lut {
		bm.lut[idx] = (127.5 - float64(idx)) / 127.5
	}
	return bm
}

// Execute consumes interleaved IQ bytes and writes completed bins to output,
// returning the number written. Output must hold at least
// len(input)/(2*decimation)+2 bins.
func (bm *BoxcarMag) Execute(input []byte, output []float64) (n int) {
	scale := 1 / float64(bm.decimation)
	for _, b := range input {
		if !bm.hasHalf {
			bm.half, bm.hasHalf = b, true
			continue
		}
		bm.hasHalf = false

		bm.i += bm.lut[bm.half]
		bm.q += bm.lut[b]
		bm.n++

		if bm.n == bm.decimation {
			i, q := bm.i*scale, bm.q*scale
			output[n] = i*i + q*q
			n++
			bm.i, bm.q, bm.n = 0, 0, 0
		}
	}
	return n
}

// EnergyDetector turns power bins into carrier decisions against a moving
// estimate of the noise baseline.
type EnergyDetector struct {
	factor float64
	window float64
	floor  float64

	baseline float64
	run      int
	maxRun   int
}

func NewEnergyDetector(cfg Config) *EnergyDetector {
	return &EnergyDetector{
		factor:   cfg.ThresholdFactor,
		window:   float64(cfg.BaselineWindow),
		floor:    cfg.NoiseFloor,
		baseline: cfg.NoiseFloor,
		maxRun:   cfg.BaselineWindow,
	}
}

// Detect reports whether the bin holds carrier and updates the baseline.
// Carrier bins hold the baseline steady; a carrier run longer than the
// averaging window is taken to be a raised noise floor and reseeds it.
func (ed *EnergyDetector) Detect(power float64) bool {
	carrier := power > ed.baseline*ed.factor

	if carrier {
		ed.run++
		if ed.run > ed.maxRun {
			ed.baseline, ed.run = power, 0
		}
	} else {
		ed.baseline += (power - ed.baseline) / ed.window
		ed.run = 0
	}

	if ed.baseline < ed.floor {
		ed.baseline = ed.floor
	}

	return carrier
}

func (ed *EnergyDetector) Baseline() float64 {
	return ed.baseline
}
