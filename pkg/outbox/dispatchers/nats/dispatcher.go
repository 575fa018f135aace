package nats

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/nats-io/nats.go"

	"github.com/gcir/gms/pkg/outbox"
)

// Conn is the part of *nats.Conn the dispatcher uses.
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

// Dispatcher publishes outbox rows on <prefix>.<topic>. The event id goes
// out as Nats-Msg-Id so JetStream streams drop redelivered duplicates.
type Dispatcher struct {
	conn   Conn
	prefix string
}

func New(conn Conn, prefix string) *Dispatcher {
	return &Dispatcher{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

func (d *Dispatcher) Subject(topic string) string {
	if d.prefix == "" {
		return topic
	}
	return d.prefix + "." + topic
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := nats.NewMsg(d.Subject(msg.Meta.Topic))
	m.Data = msg.Payload
	m.Header.Set(nats.MsgIdHdr, msg.Meta.EventID.String())
	m.Header.Set("Gms-Sequence", strconv.FormatInt(msg.Meta.Sequence, 10))
	m.Header.Set("Gms-Attempt", strconv.Itoa(msg.Meta.Attempts))
	if err := d.conn.PublishMsg(m); err != nil {
		return errors.Wrapf(err, "publish %s", m.Subject)
	}
	return nil
}
