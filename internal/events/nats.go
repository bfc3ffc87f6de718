package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"fixit/internal/models"
)

const DefaultSubjectPrefix = "fixit.requests"

// NATSPublisher publishes each event as JSON on <prefix>.<action>. The event
// id travels in the Nats-Msg-Id header so JetStream streams can dedupe.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// DialNATS connects with reconnects enabled; the caller owns Close.
func DialNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

func Subject(prefix string, action models.EventAction) string {
	return prefix + "." + string(action)
}

// Wildcard matches every action under prefix.
func Wildcard(prefix string) string { return prefix + ".>" }

func (p *NATSPublisher) Publish(ctx context.Context, evs ...models.Event) error {
	for _, ev := range evs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
		msg := &nats.Msg{
			Subject: Subject(p.prefix, ev.Action),
			Data:    data,
			Header:  nats.Header{},
		}
		msg.Header.Set(nats.MsgIdHdr, ev.ID)
		msg.Header.Set("Fixit-Request-Id", ev.RequestID)
		if err := p.nc.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish %s: %w", msg.Subject, err)
		}
	}
	return nil
}

// Decode parses one event payload received from a subscription.
func Decode(data []byte) (models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

// Subscribe delivers every event under prefix to fn. Payloads that fail to
// decode are passed to onErr.
func Subscribe(nc *nats.Conn, prefix string, fn func(models.Event), onErr func(error)) (*nats.Subscription, error) {
	subject := Wildcard(prefix)
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		ev, err := Decode(m.Data)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}
