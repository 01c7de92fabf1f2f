// Package gen synthesizes 5800 series transmissions for testing the decoder.
package gen

import (
	"math/rand"

	"github.com/bemasher/rtl5800/crc"
	"github.com/bemasher/rtl5800/decode"
)

// NewFrame packs a device id and status byte and appends the checksum.
func NewFrame(id uint32, status uint8) []byte {
	pkt := []byte{uint8(id >> 16), uint8(id >> 8), uint8(id), status}
	return crc.NewBuypass().Append(pkt)
}

func UnpackBits(data []byte) []byte {
	bits := make([]byte, len(data)<<3)

	for idx, b := range data {
		offset := idx << 3
		for bit := 7; bit >= 0; bit-- {
			bits[offset+(7-bit)] = (b >> uint8(bit)) & 0x01
		}
	}

	return bits
}

// Symbols returns the preamble followed by the bits of frame.
func Symbols(cfg decode.Config, frame []byte) []byte {
	syms := make([]byte, 0, len(cfg.Preamble)+len(frame)<<3)
	for _, c := range cfg.Preamble {
		syms = append(syms, byte(c-'0'))
	}
	return append(syms, UnpackBits(frame)...)
}

// Pulses maps symbols onto alternating carrier states starting with carrier
// present, followed by a short closing carrier pulse when the last symbol
// leaves the carrier off.
func Pulses(cfg decode.Config, syms []byte) (pulses []decode.Pulse) {
	level := true
	for _, s := range syms {
		duration := cfg.ShortPulse
		if s == 1 {
			duration = cfg.LongPulse
		}
		pulses = append(pulses, decode.Pulse{Level: level, Duration: duration})
		level = !level
	}

	if level {
		pulses = append(pulses, decode.Pulse{Level: true, Duration: cfg.ShortPulse})
	}

	return
}

const (
	carrierI, carrierQ = 0x00, 0x7F
	silenceI, silenceQ = 0x7F, 0x80
)

// Modulate renders pulses as unsigned 8-bit IQ samples, each bin spanning
// decimation samples.
func Modulate(pulses []decode.Pulse, decimation int) (iq []byte) {
	for _, p := range pulses {
		i, q := byte(silenceI), byte(silenceQ)
		if p.Level {
			i, q = carrierI, carrierQ
		}
		for n := 0; n < p.Duration*decimation; n++ {
			iq = append(iq, i, q)
		}
	}
	return
}

// Silence returns the given number of bins of carrier-free samples.
func Silence(bins, decimation int) []byte {
	return Modulate([]decode.Pulse{{Level: false, Duration: bins}}, decimation)
}

// Transmission renders a complete frame surrounded by silence.
func Transmission(cfg decode.Config, frame []byte) (iq []byte) {
	iq = append(iq, Silence(4*cfg.LongPulse, cfg.Decimation)...)
	iq = append(iq, Modulate(Pulses(cfg, Symbols(cfg, frame)), cfg.Decimation)...)
	iq = append(iq, Silence(4*cfg.LongPulse, cfg.Decimation)...)
	return
}

// NoisePulses returns pulses of random duration in [1, maxDuration].
func NoisePulses(rng *rand.Rand, n, maxDuration int) (pulses []decode.Pulse) {
	level := true
	for idx := 0; idx < n; idx++ {
		pulses = append(pulses, decode.Pulse{Level: level, Duration: rng.Intn(maxDuration) + 1})
		level = !level
	}
	return
}

// NoiseIQ returns n uniformly distributed IQ samples.
func NoiseIQ(rng *rand.Rand, n int) []byte {
	iq := make([]byte, n<<1)
	rng.Read(iq)
	return iq
}
