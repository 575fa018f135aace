package eventbus

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return c.err
}

type statusEvent struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}

func (e *statusEvent) Subject() string { return "status_changed" }

func TestNatsForwarder_ForwardsSubjecterEvents(t *testing.T) {
	conn := &recordingConn{}
	bus := NewEventPublisher(logrus.New())
	NewNatsForwarder(conn, "gms.proposals.", logrus.New()).Attach(bus)

	bus.Publish(&statusEvent{Code: "G-2025-CS-IND-001", Status: "Approved"})

	require.Equal(t, []string{"gms.proposals.status_changed"}, conn.subjects)
	var got statusEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	require.Equal(t, "Approved", got.Status)
}

func TestNatsForwarder_LogsPublishFailure(t *testing.T) {
	buf := bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(&buf)

	conn := &recordingConn{err: errors.New("nats: connection closed")}
	NewNatsForwarder(conn, "", log).Forward(&statusEvent{})

	require.Equal(t, []string{"status_changed"}, conn.subjects)
	require.Contains(t, buf.String(), "publish to nats")
}
