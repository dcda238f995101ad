package modules

import (
	"github.com/ipsco/fleet/modules/core"
	"github.com/ipsco/fleet/modules/dispatch"
	"github.com/ipsco/fleet/modules/establishment"
	"github.com/ipsco/fleet/modules/logging"
	"github.com/ipsco/fleet/modules/notifications"
	"github.com/ipsco/fleet/modules/notifications/domain/notification"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/configuration"
)

type Options struct {
	ActorIDHeader  string
	RealIPHeader   string
	RecordRequests bool
	Authz          *authz.Service
	Notifications  configuration.NotificationOptions
	// Senders overrides the notification channels built from Notifications.
	Senders []notification.Sender
}

// OptionsFromConfig maps the environment configuration onto module options.
func OptionsFromConfig(cfg *configuration.Configuration) *Options {
	return &Options{
		ActorIDHeader:  cfg.ActorIDHeader,
		RealIPHeader:   cfg.RealIPHeader,
		RecordRequests: true,
		Notifications:  cfg.Notifications,
	}
}

// BuiltInModules returns the modules in registration order. Later modules
// look up services registered by earlier ones.
func BuiltInModules(opts *Options) []application.Module {
	if opts == nil {
		opts = &Options{}
	}
	return []application.Module{
		core.NewModule(&core.ModuleOptions{ActorIDHeader: opts.ActorIDHeader}),
		logging.NewModule(&logging.ModuleOptions{
			RealIPHeader:   opts.RealIPHeader,
			RecordRequests: opts.RecordRequests,
		}),
		establishment.NewModule(&establishment.ModuleOptions{Authz: opts.Authz}),
		dispatch.NewModule(),
		notifications.NewModule(&notifications.ModuleOptions{
			Options: opts.Notifications,
			Senders: opts.Senders,
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
