package eventbus

import (
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Subjecter is implemented by events that can be forwarded to NATS.
type Subjecter interface {
	Subject() string
}

// Conn is the part of *nats.Conn the forwarder uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NatsForwarder republishes Subjecter events as JSON on prefix.<subject>.
type NatsForwarder struct {
	conn   Conn
	prefix string
	log    *logrus.Logger
}

func NewNatsForwarder(conn Conn, prefix string, log *logrus.Logger) *NatsForwarder {
	return &NatsForwarder{conn: conn, prefix: strings.TrimSuffix(prefix, "."), log: log}
}

// Connect dials url and returns the live connection with a forwarder bound to it.
func Connect(url, prefix string, log *logrus.Logger) (*nats.Conn, *NatsForwarder, error) {
	nc, err := nats.Connect(url,
		nats.Name("gcir-gms"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect nats")
	}
	return nc, NewNatsForwarder(nc, prefix, log), nil
}

func (f *NatsForwarder) SubjectFor(e Subjecter) string {
	if f.prefix == "" {
		return e.Subject()
	}
	return f.prefix + "." + e.Subject()
}

// Forward marshals e and publishes it. Failures are logged, never returned:
// forwarding happens after the originating transaction committed.
func (f *NatsForwarder) Forward(e Subjecter) {
	data, err := json.Marshal(e)
	if err != nil {
		f.log.WithError(err).Error("eventbus: marshal event for nats")
		return
	}
	subject := f.SubjectFor(e)
	if err := f.conn.Publish(subject, data); err != nil {
		f.log.WithError(err).WithField("subject", subject).Error("eventbus: publish to nats")
	}
}

// Attach subscribes Forward to bus.
func (f *NatsForwarder) Attach(bus EventBus) {
	bus.Subscribe(f.Forward)
}
