// RTL5800 - An rtl-sdr receiver for Honeywell 5800 series sensors operating at 345MHz.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package decode

// Decoder runs the physical layer: power bins, carrier decisions, pulses and
// bit recovery. It is not safe for concurrent use.
type Decoder struct {
	Cfg Config

	demod     Demodulator
	detector  *EnergyDetector
	timer     *PulseTimer
	recoverer *Recoverer

	power []float64
}

// Create a new decoder with the given configuration.
func NewDecoder(cfg Config) (*Decoder, error) {
	recoverer, err := NewRecoverer(cfg)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		Cfg:       cfg,
		demod:     NewBoxcarMag(cfg.Decimation),
		detector:  NewEnergyDetector(cfg),
		timer:     NewPulseTimer(cfg),
		recoverer: recoverer,
	}, nil
}

// Decode accepts a block of interleaved IQ samples and returns the bits of
// every frame completed within it. Blocks may be any length; state carries
// over between calls.
func (d *Decoder) Decode(input []byte) (frames [][]byte) {
	bins := len(input)/(d.Cfg.Decimation<<1) + 2
	if cap(d.power) < bins {
		d.power = make([]float64, bins)
	}
	d.power = d.power[:bins]

	// Compute power of the new block.
	n := d.demod.Execute(input, d.power)

	for _, power := range d.power[:n] {
		carrier := d.detector.Detect(power)

		p, ok := d.timer.Feed(carrier)
		if !ok {
			continue
		}

		if frame, ok := d.recoverer.Feed(p); ok {
			frames = append(frames, frame)
		}
	}

	return
}

// Flush drains pulses pending in the timer, used once a finite capture has
// been consumed.
func (d *Decoder) Flush() (frames [][]byte) {
	for _, p := range d.timer.Flush() {
		if frame, ok := d.recoverer.Feed(p); ok {
			frames = append(frames, frame)
		}
	}
	return
}

func (d *Decoder) Stats() Stats {
	return d.recoverer.Stats()
}

func (d *Decoder) State() State {
	return d.recoverer.State()
}

func (d *Decoder) Baseline() float64 {
	return d.detector.Baseline()
}

func (d *Decoder) Log() {
	d.Cfg.Log()
}
