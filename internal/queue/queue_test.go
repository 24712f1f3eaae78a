package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

type memOutbox struct {
	rows    []model.MailMessage
	relayed map[uint64]bool
}

func (o *memOutbox) ListPending(_ context.Context, limit int) ([]model.MailMessage, error) {
	var out []model.MailMessage
	for _, m := range o.rows {
		if !o.relayed[m.ID] && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (o *memOutbox) MarkRelayed(_ context.Context, id uint64, _ time.Time) error {
	o.relayed[id] = true
	return nil
}

type recordingPublisher struct {
	sent   []MailEnvelope
	failAt int
}

func (p *recordingPublisher) PublishMail(_ context.Context, env MailEnvelope) error {
	if p.failAt > 0 && len(p.sent)+1 == p.failAt {
		return errors.New("broker down")
	}
	p.sent = append(p.sent, env)
	return nil
}

func outbox(n int) *memOutbox {
	o := &memOutbox{relayed: map[uint64]bool{}}
	for i := 1; i <= n; i++ {
		o.rows = append(o.rows, model.MailMessage{ID: uint64(i), To: "anna@example.com", Subject: "Hi", HTML: "<p>x</p>"})
	}
	return o
}

func TestRelayOnce_BatchesAndMarks(t *testing.T) {
	o := outbox(3)
	pub := &recordingPublisher{}
	r := NewRelay(o, pub, time.Second, 2, nil)

	n, err := r.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = r.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, pub.sent, 3)
	assert.Equal(t, "Hi", pub.sent[0].Message.Subject)
	assert.True(t, o.relayed[3])
}

func TestRelayOnce_StopsAtPublishFailure(t *testing.T) {
	o := outbox(3)
	r := NewRelay(o, &recordingPublisher{failAt: 2}, time.Second, 10, nil)

	n, err := r.RelayOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, o.relayed[1])
	assert.False(t, o.relayed[2])
}

func TestRelayRun_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r := NewRelay(outbox(1), &recordingPublisher{}, 10*time.Millisecond, 10, nil)
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestEnvelopeShape(t *testing.T) {
	b, err := json.Marshal(EnvelopeFor(model.MailMessage{ID: 7, To: "a@b.c", Subject: "S", HTML: "<p>h</p>"}))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "a@b.c", doc["to"])
	msg := doc["message"].(map[string]any)
	assert.Equal(t, "S", msg["subject"])
	assert.Equal(t, "<p>h</p>", msg["html"])
}

func TestConsumerHandle(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("", "mail.outbound", dir, nil)

	body, _ := json.Marshal(MailEnvelope{ID: 3, To: "anna@example.com", Message: MailContent{Subject: "Booking confirmed: Pottery", HTML: "<p>ok</p>"}})
	require.NoError(t, c.Handle(body))
	require.Error(t, c.Handle([]byte("not json")))
	require.Error(t, c.Handle([]byte(`{"to":""}`)))

	data, err := os.ReadFile(filepath.Join(dir, "mail.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "to=anna@example.com")
	assert.Contains(t, lines[0], `subject="Booking confirmed: Pottery"`)
}
