// Package mail delivers account email through pluggable transports.
package mail

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrNoRecipients = errors.New("mail: no recipients")
	ErrNoSender     = errors.New("mail: no from address")
)

// Message is a plain-text email.
type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
	// HTMLBody, when set, is sent as an alternative part.
	HTMLBody string
}

// Sender delivers a message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// withDefaults fills From with the fallback address and validates recipients.
func withDefaults(msg Message, defaultFrom string) (Message, error) {
	if strings.TrimSpace(msg.From) == "" {
		msg.From = defaultFrom
	}
	if strings.TrimSpace(msg.From) == "" {
		return msg, ErrNoSender
	}
	to := msg.To[:0:0]
	for _, addr := range msg.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return msg, ErrNoRecipients
	}
	msg.To = to
	return msg, nil
}

// Outbox keeps sent messages in memory.
type Outbox struct {
	DefaultFrom string
	// Err, when set, is returned by Send instead of recording the message.
	Err error

	mu       sync.Mutex
	messages []Message
}

func NewOutbox(defaultFrom string) *Outbox {
	return &Outbox{DefaultFrom: defaultFrom}
}

func (o *Outbox) Send(_ context.Context, msg Message) error {
	if o.Err != nil {
		return o.Err
	}
	msg, err := withDefaults(msg, o.DefaultFrom)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()
	return nil
}

// Messages returns a copy of everything sent so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}
