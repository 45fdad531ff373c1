package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// EventNotice is a push notification that new events landed for an entity.
// The payload carries no event data; consumers re-query the event API so the
// derived view always comes from the complete history.
type EventNotice struct {
	Kind       string `json:"kind"` // loan | pool | auction
	EntityID   string `json:"entityId"`
	DomainName string `json:"domainName,omitempty"`
}

type subscribeRequest struct {
	Type  string   `json:"type"`
	Kinds []string `json:"kinds,omitempty"`
}

// Stream maintains a websocket subscription to the indexer's live event feed
// and reconnects with capped exponential backoff. Notices are dropped rather
// than buffered when the consumer is slow; the feed is advisory only.
type Stream struct {
	URL        string
	Reconnect  time.Duration
	MaxBackoff time.Duration
	Logger     *zap.Logger
}

func (s *Stream) Run(ctx context.Context, out chan<- EventNotice) error {
	if s == nil || strings.TrimSpace(s.URL) == "" {
		return nil
	}
	backoff := s.Reconnect
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	maxBackoff := s.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = time.Minute
	}
	delay := backoff
	for {
		err := s.runOnce(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && s.Logger != nil {
			s.Logger.Warn("indexer stream disconnected", zap.Error(err), zap.Duration("retry_in", delay))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
		if err == nil {
			delay = backoff
		}
	}
}

func (s *Stream) runOnce(ctx context.Context, out chan<- EventNotice) error {
	conn, _, err := websocket.Dial(ctx, s.URL, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	conn.SetReadLimit(1 << 20)

	sub := subscribeRequest{Type: "events", Kinds: []string{"loan", "pool", "auction"}}
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return err
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return err
		}
		var notice EventNotice
		if err := json.Unmarshal(data, &notice); err != nil {
			if s.Logger != nil {
				s.Logger.Debug("indexer stream bad frame", zap.Error(err))
			}
			continue
		}
		if notice.Kind == "" || notice.EntityID == "" {
			continue
		}
		select {
		case out <- notice:
		default:
			// Consumer is behind; drop. State is re-derived on read anyway.
		}
	}
}
