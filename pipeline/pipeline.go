// Package pipeline joins the decoder, frame validation, message decoding
// and the device registry into a single-goroutine path from IQ samples to
// messages.
package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bemasher/rtl5800/decode"
	"github.com/bemasher/rtl5800/device"
	"github.com/bemasher/rtl5800/metric"
	"github.com/bemasher/rtl5800/parse"
)

// Stats counts frame and message outcomes.
type Stats struct {
	decode.Stats

	Accepted     uint64
	Rejected     uint64
	Malformed    uint64
	Emitted      uint64
	Deduplicated uint64
}

type Pipeline struct {
	dec       *decode.Decoder
	validator parse.Validator
	registry  *device.Registry

	clock   func() time.Time
	metrics *metric.Metrics

	stats Stats
}

type Option func(*Pipeline)

// WithClock sets the time source used to stamp sightings for deduplication.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

func WithMetrics(m *metric.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New builds a pipeline. The registry is handed over to the pipeline and must
// not be touched by anyone else while it runs.
func New(cfg decode.Config, registry *device.Registry, opts ...Option) (*Pipeline, error) {
	dec, err := decode.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		dec:       dec,
		validator: parse.NewValidator(),
		registry:  registry,
		clock:     time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Process decodes a block of IQ samples and returns the messages to emit.
func (p *Pipeline) Process(block []byte) []device.Message {
	return p.handle(p.dec.Decode(block))
}

// Flush decodes whatever the pulse timer still holds. Call it once a finite
// capture has been fully processed.
func (p *Pipeline) Flush() []device.Message {
	return p.handle(p.dec.Flush())
}

func (p *Pipeline) handle(frames [][]byte) (msgs []device.Message) {
	defer p.updateDecoderStats()

	for _, bits := range frames {
		if msg, ok := p.frame(bits); ok {
			msgs = append(msgs, msg)
		}
	}

	return
}

func (p *Pipeline) frame(bits []byte) (msg device.Message, ok bool) {
	f, err := parse.NewFrameFromBits(bits)
	if err != nil {
		p.stats.Malformed++
		p.countFrame("malformed")
		logrus.WithError(err).Debug("malformed frame")
		return
	}

	if !p.validator.Validate(f) {
		p.stats.Rejected++
		p.countFrame("rejected")
		return
	}
	p.stats.Accepted++
	p.countFrame("accepted")

	msg = device.Decode(f, p.registry.Lookup(f.DeviceID()))

	if !p.registry.Record(msg.ID, msg.Status, p.clock()) {
		p.stats.Deduplicated++
		p.countMessage("deduplicated")
		logrus.WithField("msg", msg).Trace("duplicate")
		return msg, false
	}

	p.stats.Emitted++
	p.countMessage("emitted")
	logrus.WithField("msg", msg).Debug("decoded")

	return msg, true
}

func (p *Pipeline) countFrame(status string) {
	if p.metrics != nil {
		p.metrics.Frames.WithLabelValues(status).Inc()
	}
}

func (p *Pipeline) countMessage(status string) {
	if p.metrics != nil {
		p.metrics.Messages.WithLabelValues(status).Inc()
	}
}

func (p *Pipeline) updateDecoderStats() {
	prev, cur := p.stats.Stats, p.dec.Stats()
	p.stats.Stats = cur

	if p.metrics == nil {
		return
	}

	p.metrics.Pulses.Add(float64(cur.Pulses - prev.Pulses))
	p.metrics.Preambles.Add(float64(cur.Preambles - prev.Preambles))
	p.metrics.FramingErrors.Add(float64(cur.FramingErrors - prev.FramingErrors))
}

func (p *Pipeline) Stats() Stats {
	return p.stats
}

func (p *Pipeline) State() decode.State {
	return p.dec.State()
}

func (p *Pipeline) Log() {
	p.dec.Log()
	logrus.WithFields(logrus.Fields{
		"devices": p.registry.Len(),
		"dedup":   p.registry.Options().Dedup,
		"window":  p.registry.Options().Window,
	}).Info("registry")
}
