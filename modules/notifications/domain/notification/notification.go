package notification

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// Channels lists every channel in dispatch order.
func Channels() []Channel {
	return []Channel{ChannelSMS, ChannelWhatsApp, ChannelEmail}
}

// Recipient is the addressable side of an actor.
type Recipient struct {
	ActorID uuid.UUID
	Name    string
	Phone   string
	Email   string
}

// Address returns the destination for channel, or "" when the recipient
// cannot be reached on it.
func (r Recipient) Address(channel Channel) string {
	switch channel {
	case ChannelSMS, ChannelWhatsApp:
		return SanitizePhone(r.Phone)
	case ChannelEmail:
		return strings.TrimSpace(r.Email)
	}
	return ""
}

type Message struct {
	Title string
	Body  string
}

func (m Message) Empty() bool {
	return strings.TrimSpace(m.Title) == "" && strings.TrimSpace(m.Body) == ""
}

// Sender delivers a rendered message on one channel and returns the
// provider's answer verbatim.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, address string, msg Message) (string, error)
}

// Attempt records one delivery attempt on one channel.
type Attempt struct {
	Channel          Channel       `json:"channel"`
	Address          string        `json:"address"`
	Success          bool          `json:"success"`
	ProviderResponse string        `json:"provider_response,omitempty"`
	Error            string        `json:"error,omitempty"`
	Duration         time.Duration `json:"duration"`
	Err              error         `json:"-"`
}

// DispatchResult aggregates the attempts of one notification event.
type DispatchResult struct {
	Attempts []Attempt `json:"attempts"`
	Skipped  []Channel `json:"skipped"`
}

func (r DispatchResult) AnySucceeded() bool {
	for _, a := range r.Attempts {
		if a.Success {
			return true
		}
	}
	return false
}

func (r DispatchResult) Succeeded() []Channel {
	var out []Channel
	for _, a := range r.Attempts {
		if a.Success {
			out = append(out, a.Channel)
		}
	}
	return out
}

func (r DispatchResult) Failed() []Attempt {
	var out []Attempt
	for _, a := range r.Attempts {
		if !a.Success {
			out = append(out, a)
		}
	}
	return out
}

func (r DispatchResult) Attempt(channel Channel) (Attempt, bool) {
	for _, a := range r.Attempts {
		if a.Channel == channel {
			return a, true
		}
	}
	return Attempt{}, false
}

func (r DispatchResult) WasSkipped(channel Channel) bool {
	for _, c := range r.Skipped {
		if c == channel {
			return true
		}
	}
	return false
}

// SanitizePhone keeps digits and a leading '+'.
func SanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

// SMSBody renders msg for text message gateways.
func SMSBody(msg Message) string {
	return joinNonEmpty(msg.Title, msg.Body, "\n")
}

// WhatsAppBody renders msg with the title in bold.
func WhatsAppBody(msg Message) string {
	if strings.TrimSpace(msg.Title) == "" {
		return msg.Body
	}
	return joinNonEmpty("*"+msg.Title+"*", msg.Body, "\n\n")
}

func joinNonEmpty(a, b, sep string) string {
	switch {
	case strings.TrimSpace(a) == "":
		return b
	case strings.TrimSpace(b) == "":
		return a
	}
	return a + sep + b
}
