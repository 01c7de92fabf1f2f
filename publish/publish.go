// Package publish delivers decoded messages to their consumers: a NATS
// server or an encoder writing to stdout.
package publish

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/bemasher/rtl5800/device"
	"github.com/bemasher/rtl5800/metric"
	"github.com/bemasher/rtl5800/parse"
)

type Publisher interface {
	Publish(device.Message) error
	Close() error
}

// JSON, CSV and plain output all implement this interface.
type Encoder interface {
	Encode(interface{}) error
}

// EncoderPublisher writes messages with an encoder. When Stamp is set each
// message is wrapped in a parse.LogMessage carrying the time it was written.
type EncoderPublisher struct {
	Encoder Encoder
	Stamp   bool
	Now     func() time.Time
}

func (ep EncoderPublisher) Publish(msg device.Message) error {
	var v interface{} = msg
	if ep.Stamp {
		now := time.Now
		if ep.Now != nil {
			now = ep.Now
		}
		v = parse.LogMessage{Time: now(), Message: msg}
	}

	if err := ep.Encoder.Encode(v); err != nil {
		return xerrors.Errorf("encode %s: %w", parse.FormatID(msg.ID), err)
	}
	return nil
}

func (ep EncoderPublisher) Close() error {
	return nil
}

// Run publishes messages from q until it is closed or ctx is cancelled. A
// publish error ends the run so the process can restart and reconnect.
func Run(ctx context.Context, q *Queue, pub Publisher, m *metric.Metrics) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-q.C():
			if !ok {
				return nil
			}

			if m != nil {
				m.QueueDepth.Set(float64(q.Len()))
			}

			if err := pub.Publish(msg); err != nil {
				if m != nil {
					m.PublishErrors.Inc()
				}
				return xerrors.Errorf("publish: %w", err)
			}

			if m != nil {
				m.Published.Inc()
			}
			logrus.WithField("msg", msg).Debug("published")
		}
	}
}
