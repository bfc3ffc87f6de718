package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixit/internal/models"
)

type failing struct{ err error }

func (f failing) Publish(context.Context, ...models.Event) error { return f.err }

func sampleEvent() models.Event {
	return models.Event{
		ID:        "ev-1",
		Action:    models.ActionStatusChange,
		RequestID: "req-1",
		From:      "new",
		To:        "assigned",
		Actor:     "mgr-1",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	rec := &Recorder{}
	boom := errors.New("boom")
	m := Multi{rec, nil, failing{boom}}

	err := m.Publish(context.Background(), sampleEvent())

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []models.EventAction{models.ActionStatusChange}, rec.Actions(""))
}

func TestLogPublisherWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "status_change", line["action"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "new", line["from"])
	assert.Equal(t, "assigned", line["to"])
	assert.Equal(t, "events", line["component"])
}

func TestSubjectAndDecode(t *testing.T) {
	assert.Equal(t, "fixit.requests.assignment", Subject(DefaultSubjectPrefix, models.ActionAssignment))
	assert.Equal(t, "fixit.requests.>", Wildcard(DefaultSubjectPrefix))

	data, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	ev, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, sampleEvent(), ev)

	_, err = Decode([]byte("{"))
	assert.Error(t, err)
}

func TestRecorderFiltersByRequest(t *testing.T) {
	rec := &Recorder{}
	a := sampleEvent()
	b := sampleEvent()
	b.RequestID = "req-2"
	b.Action = models.ActionAssignment
	require.NoError(t, rec.Publish(context.Background(), a, b))

	assert.Equal(t, []models.EventAction{models.ActionAssignment}, rec.Actions("req-2"))
	assert.Len(t, rec.Events(), 2)
}
