package channels

import (
	"context"

	"github.com/ipsco/fleet/modules/notifications/domain/notification"
	"github.com/ipsco/fleet/pkg/eskiz"
)

// SMSSender delivers through the Eskiz gateway.
type SMSSender struct {
	gateway eskiz.Service
}

func NewSMSSender(gateway eskiz.Service) *SMSSender {
	return &SMSSender{gateway: gateway}
}

func (s *SMSSender) Channel() notification.Channel {
	return notification.ChannelSMS
}

func (s *SMSSender) Send(ctx context.Context, address string, msg notification.Message) (string, error) {
	res, err := s.gateway.SendSMS(ctx, eskiz.SMS{To: address, Message: notification.SMSBody(msg)})
	if err != nil {
		return res.Raw, err
	}
	return res.Raw, nil
}
