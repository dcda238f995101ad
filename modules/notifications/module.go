package notifications

import (
	"net/http"

	"github.com/ipsco/fleet/modules/notifications/channels"
	"github.com/ipsco/fleet/modules/notifications/domain/notification"
	"github.com/ipsco/fleet/modules/notifications/handlers"
	"github.com/ipsco/fleet/modules/notifications/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/configuration"
	"github.com/ipsco/fleet/pkg/eskiz"
)

type ModuleOptions struct {
	Options configuration.NotificationOptions
	// Senders replaces the channels built from Options.
	Senders []notification.Sender
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	senders := m.options.Senders
	if senders == nil {
		senders = m.senders(app)
	}
	dispatcher := services.NewDispatcher(m.options.Options.ChannelTimeout, app.Logger(), senders...)
	app.RegisterServices(
		dispatcher,
		handlers.RegisterMissionEventHandlers(app.EventPublisher(), dispatcher, app.Logger()),
	)
	return nil
}

func (m *Module) senders(app application.Application) []notification.Sender {
	opts := m.options.Options
	var out []notification.Sender
	if opts.SMTP.Enabled {
		out = append(out, channels.NewEmailSender(opts.SMTP.Host, opts.SMTP.Port, opts.SMTP.User, opts.SMTP.Password, opts.SMTP.From))
	}
	if opts.SMS.Enabled {
		cfg := eskiz.NewConfig(opts.SMS.URL, opts.SMS.Email, opts.SMS.Password, opts.SMS.From)
		out = append(out, channels.NewSMSSender(eskiz.NewService(cfg, app.Logger())))
	}
	if opts.WhatsApp.Enabled {
		out = append(out, channels.NewWhatsAppSender(opts.WhatsApp.URL, opts.WhatsApp.Token, &http.Client{Timeout: opts.ChannelTimeout}))
	}
	return out
}

func (m *Module) Name() string {
	return "notifications"
}
