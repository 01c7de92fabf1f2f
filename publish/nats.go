package publish

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/bemasher/rtl5800/device"
	"github.com/bemasher/rtl5800/parse"
)

const DefaultPrefix = "hw5800"

type NATSConfig struct {
	URL    string
	Prefix string
	Name   string

	User     string
	Password string

	CAFile   string
	CertFile string
	KeyFile  string

	MaxReconnects int
	ReconnectWait time.Duration
}

func (cfg NATSConfig) options() []nats.Option {
	name := cfg.Name
	if name == "" {
		name = DefaultPrefix + "-" + uuid.NewString()
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logrus.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logrus.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	}

	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		opts = append(opts, nats.ClientCert(cfg.CertFile, cfg.KeyFile))
	}
	if cfg.CAFile != "" {
		opts = append(opts, nats.RootCAs(cfg.CAFile))
	}

	return opts
}

// Subject returns the subject a device's messages are published on.
func Subject(prefix string, id uint32) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "." + parse.FormatID(id)
}

type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func DialNATS(cfg NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL, cfg.options()...)
	if err != nil {
		return nil, xerrors.Errorf("connect %s: %w", cfg.URL, err)
	}

	logrus.WithField("url", conn.ConnectedUrl()).Info("connected to nats")

	return &NATSPublisher{conn: conn, prefix: cfg.Prefix}, nil
}

func (np *NATSPublisher) Publish(msg device.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	subject := Subject(np.prefix, msg.ID)
	logrus.WithFields(logrus.Fields{
		"subject": subject,
		"payload": string(payload),
	}).Info("publishing")

	return np.conn.Publish(subject, payload)
}

func (np *NATSPublisher) Close() error {
	if err := np.conn.Drain(); err != nil {
		np.conn.Close()
		return xerrors.Errorf("drain: %w", err)
	}
	return nil
}
