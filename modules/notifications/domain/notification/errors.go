package notification

import (
	"github.com/ipsco/fleet/pkg/serrors"
)

const CodeChannelDelivery = "NOTIFICATION_CHANNEL_DELIVERY_FAILED"

const (
	ReasonTimeout      = "timeout"
	ReasonEmptyMessage = "empty message"
	ReasonPanic        = "sender panicked"
)

var ErrChannelDelivery = serrors.NewError(CodeChannelDelivery, "channel delivery failed", "Notifications.Errors.Delivery")

// ChannelDeliveryError is the failure of one channel. It never leaves the
// dispatcher except inside an Attempt.
type ChannelDeliveryError struct {
	serrors.BaseError
	Channel Channel
	Reason  string
	Cause   error
}

func NewChannelDeliveryError(channel Channel, reason string, cause error) *ChannelDeliveryError {
	msg := string(channel) + ": " + reason
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &ChannelDeliveryError{
		BaseError: serrors.BaseError{
			Code:    CodeChannelDelivery,
			Message: msg,
			Locale:  ErrChannelDelivery.Locale,
		},
		Channel: channel,
		Reason:  reason,
		Cause:   cause,
	}
}

func (e *ChannelDeliveryError) Unwrap() error {
	return e.Cause
}
