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

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/bemasher/rtltcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/bemasher/rtl5800/config"
	"github.com/bemasher/rtl5800/device"
	"github.com/bemasher/rtl5800/metric"
	"github.com/bemasher/rtl5800/parse"
	"github.com/bemasher/rtl5800/pipeline"
	"github.com/bemasher/rtl5800/publish"
)

// Bytes of interleaved IQ read from the source per block.
const BlockSize = 1 << 15

var rcvr Receiver

type Receiver struct {
	rtltcp.SDR
	source io.ReadCloser
	replay bool

	pipe    *pipeline.Pipeline
	fc      parse.FilterChain
	queue   *publish.Queue
	pub     publish.Publisher
	metrics *metric.Metrics

	sampleBuf *bytes.Buffer
}

func (rcvr *Receiver) NewReceiver() {
	tuning, err := config.Load(*tuningFilename)
	if err != nil {
		logrus.Fatal(err)
	}

	types, err := tuning.Types()
	if err != nil {
		logrus.Fatal(err)
	}

	opts := tuning.RegistryOptions()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "centerfreq":
			tuning.Decoder.CenterFreq = uint32(rcvr.Flags.CenterFreq)
		case "samplerate":
			tuning.Decoder.SampleRate = uint32(rcvr.Flags.SampleRate)
		case "unique":
			opts.Dedup = *unique
		case "uniquewindow":
			opts.Window = *uniqueWindow
		case "filterid":
			rcvr.fc.Add(deviceID)
		}
	})

	// The registry is filled here, before the decode goroutine takes
	// ownership of it.
	registry := device.NewRegistry(opts)
	if *deviceFilename != "" {
		if err := device.LoadFile(*deviceFilename, types, registry); err != nil {
			logrus.Fatal(err)
		}
	}

	rcvr.metrics = metric.NewMetrics()
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		if err := rcvr.metrics.Register(reg); err != nil {
			logrus.Fatal(err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logrus.WithError(http.ListenAndServe(*metricsAddr, mux)).Error("metrics server stopped")
		}()
	}

	rcvr.pipe, err = pipeline.New(tuning.Decoder, registry, pipeline.WithMetrics(rcvr.metrics))
	if err != nil {
		logrus.Fatal(err)
	}

	rcvr.queue = publish.NewQueue(*queueLength)
	rcvr.sampleBuf = new(bytes.Buffer)

	if *natsURL != "" {
		rcvr.pub, err = publish.DialNATS(publish.NATSConfig{
			URL:           *natsURL,
			Prefix:        *natsPrefix,
			Name:          *natsName,
			User:          *natsUser,
			Password:      *natsPassword,
			CAFile:        *natsCAFile,
			CertFile:      *natsCertFile,
			KeyFile:       *natsKeyFile,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		})
		if err != nil {
			logrus.Fatal(err)
		}
	} else {
		rcvr.pub = publish.EncoderPublisher{
			Encoder: encoder,
			Stamp:   *format != "json",
		}
	}

	if *replayFilename != "" {
		rcvr.source, err = os.Open(*replayFilename)
		if err != nil {
			logrus.Fatal("Error opening replay file: ", err)
		}
		rcvr.replay = true
	} else {
		if err := rcvr.connect(tuning.Decoder.CenterFreq, tuning.Decoder.SampleRate); err != nil {
			logrus.Fatal(err)
		}
		rcvr.source = rcvr.SDR
	}

	rcvr.pipe.Log()
}

// Connect to rtl_tcp and tune to the decoder's frequency and sample rate.
func (rcvr *Receiver) connect(centerFreq, sampleRate uint32) error {
	if err := rcvr.Connect(nil); err != nil {
		return err
	}

	if err := rcvr.tune(centerFreq, sampleRate); err != nil {
		rcvr.SDR.Close()
		return err
	}

	// Tell the user how many gain settings were reported by rtl_tcp.
	logrus.WithField("gaincount", rcvr.SDR.Info.GainCount).Info("connected to rtl_tcp")
	return nil
}

// tune sends the rtltcp flags given on the command line, then the decoder's
// frequency and rate, and enables automatic gain unless a gain flag was set.
func (rcvr *Receiver) tune(centerFreq, sampleRate uint32) error {
	if err := rcvr.HandleFlags(); err != nil {
		return xerrors.Errorf("rtltcp flags: %w", err)
	}

	gainFlagSet := false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gainbyindex", "tunergainmode", "tunergain", "agcmode":
			gainFlagSet = true
		}
	})

	if err := rcvr.SetCenterFreq(centerFreq); err != nil {
		return xerrors.Errorf("set center frequency: %w", err)
	}
	if err := rcvr.SetSampleRate(sampleRate); err != nil {
		return xerrors.Errorf("set sample rate: %w", err)
	}
	if !gainFlagSet {
		if err := rcvr.SetGainMode(true); err != nil {
			return xerrors.Errorf("set gain mode: %w", err)
		}
	}

	return nil
}

func (rcvr *Receiver) Close() {
	if err := rcvr.pub.Close(); err != nil {
		logrus.WithError(err).Warn("closing publisher")
	}
}

// Run reads, decodes and publishes until the source ends, ctx is cancelled
// or a fatal error occurs. Decoding happens on a single goroutine.
func (rcvr *Receiver) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	readCtx, stopRead := context.WithCancel(gctx)

	blockCh := make(chan []byte)

	// Unblock a pending read on shutdown.
	go func() {
		<-readCtx.Done()
		rcvr.source.Close()
	}()

	g.Go(func() error {
		return rcvr.read(readCtx, blockCh)
	})

	g.Go(func() error {
		defer stopRead()
		defer rcvr.queue.Close()
		return rcvr.decode(gctx, blockCh)
	})

	// Publishing ends when the queue is closed so queued messages are not lost.
	g.Go(func() error {
		return publish.Run(context.Background(), rcvr.queue, rcvr.pub, rcvr.metrics)
	})

	return g.Wait()
}

func (rcvr *Receiver) read(ctx context.Context, blockCh chan<- []byte) error {
	// When exiting, close the block channel.
	defer close(blockCh)

	// Make two sample blocks, one for reading, and one for the decoder,
	// these are exchanged each time we read a new block.
	blockA := make([]byte, BlockSize)
	blockB := make([]byte, BlockSize)

	for {
		n, err := io.ReadFull(rcvr.source, blockA)

		if ctx.Err() != nil {
			return nil
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if !rcvr.replay {
				return xerrors.Errorf("sample source closed: %w", err)
			}

			logrus.Info("end of replay")
			select {
			case blockCh <- blockA[:n]:
			case <-ctx.Done():
			}
			return nil
		}

		// If we get a network operation error.
		var opErr *net.OpError
		if xerrors.As(err, &opErr) {
			// If temporary, keep reading.
			if opErr.Temporary() {
				logrus.WithError(opErr).Warn("temporary read error")
				continue
			}
			return xerrors.Errorf("sample source: %w", opErr)
		}

		if err != nil {
			return xerrors.Errorf("sample source: %w", err)
		}

		// Send the sample block.
		select {
		case blockCh <- blockA:
		case <-ctx.Done():
			return nil
		}

		// Exchange blocks for next read.
		blockA, blockB = blockB, blockA
	}
}

func (rcvr *Receiver) decode(ctx context.Context, blockCh <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case block, ok := <-blockCh:
			// If blockCh is closed, drain the decoder and exit.
			if !ok {
				rcvr.emit(rcvr.pipe.Flush())
				return nil
			}

			// If dumping samples, discard the oldest block from the buffer if
			// it's full and write the new block to it.
			if *sampleFilename != os.DevNull {
				if rcvr.sampleBuf.Len() >= BlockSize<<1 {
					io.CopyN(io.Discard, rcvr.sampleBuf, int64(rcvr.sampleBuf.Len()-BlockSize))
				}
				rcvr.sampleBuf.Write(block)
			}

			found, done := rcvr.emit(rcvr.pipe.Process(block))

			if found && *sampleFilename != os.DevNull {
				if _, err := sampleFile.Write(rcvr.sampleBuf.Bytes()); err != nil {
					return xerrors.Errorf("writing raw samples to file: %w", err)
				}
				rcvr.sampleBuf.Reset()
			}

			if done {
				return nil
			}
		}
	}
}

// emit filters messages and queues them for publishing. It reports whether
// any were queued and whether single shot execution is complete.
func (rcvr *Receiver) emit(msgs []device.Message) (found, done bool) {
	for _, msg := range msgs {
		// If the filterchain rejects the message, skip it.
		if !rcvr.fc.Match(msg) {
			rcvr.metrics.Messages.WithLabelValues("filtered").Inc()
			continue
		}

		if rcvr.queue.Push(msg) {
			rcvr.metrics.Messages.WithLabelValues("dropped").Inc()
			logrus.Warn("publisher behind, dropped oldest message")
		}
		rcvr.metrics.QueueDepth.Set(float64(rcvr.queue.Len()))
		found = true

		if *single {
			if len(deviceID.IDMap) == 0 {
				return found, true
			}
			delete(deviceID.IDMap, msg.DeviceID())
			if len(deviceID.IDMap) == 0 {
				return found, true
			}
		}
	}

	return found, false
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: parse.TimeFormat,
	})
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func main() {
	rcvr.RegisterFlags()
	RegisterFlags()
	EnvOverride()
	flag.Parse()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	HandleFlags()

	rcvr.NewReceiver()

	defer sampleFile.Close()
	defer rcvr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *timeLimit != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeLimit)
		defer cancel()
	}

	start := time.Now()
	if err := rcvr.Run(ctx); err != nil {
		logrus.WithError(err).Error("receiver stopped")
		rcvr.Close()
		sampleFile.Close()
		os.Exit(1)
	}

	logrus.WithFields(logrus.Fields{
		"runtime": time.Since(start),
		"stats":   fmt.Sprintf("%+v", rcvr.pipe.Stats()),
	}).Info("exiting")
}
