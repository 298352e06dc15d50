package messaging

import (
	"context"
	"encoding/json"
	"errors"
)

// ChannelPublisher wraps every payload in a Message and sends it to one channel.
type ChannelPublisher struct {
	broker  Broker
	channel string
}

func NewChannelPublisher(broker Broker, channel string) (*ChannelPublisher, error) {
	if broker == nil {
		return nil, errors.New("messaging: nil broker")
	}
	if channel == "" {
		return nil, errors.New("messaging: empty channel")
	}
	return &ChannelPublisher{broker: broker, channel: channel}, nil
}

func (p *ChannelPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	return p.broker.Publish(ctx, p.channel, Message{Type: eventType, Payload: payload})
}

func (p *ChannelPublisher) Channel() string {
	return p.channel
}

// ChannelSubscriber reads the Messages sent by a ChannelPublisher on the same
// channel.
type ChannelSubscriber struct {
	broker  Broker
	channel string
}

func NewChannelSubscriber(broker Broker, channel string) (*ChannelSubscriber, error) {
	if broker == nil {
		return nil, errors.New("messaging: nil broker")
	}
	if channel == "" {
		return nil, errors.New("messaging: empty channel")
	}
	return &ChannelSubscriber{broker: broker, channel: channel}, nil
}

// Subscribe decodes every payload on the channel into an Envelope until ctx is
// done or the broker stops. Payloads that are not Messages are skipped.
func (s *ChannelSubscriber) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	raw, err := s.broker.Subscribe(ctx, s.channel)
	if err != nil {
		return nil, err
	}

	out := make(chan Envelope)
	go func() {
		defer close(out)
		for payload := range raw {
			var env Envelope
			if err := json.Unmarshal(payload, &env); err != nil || env.Type == "" {
				continue
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *ChannelSubscriber) Channel() string {
	return s.channel
}
