package commands

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	coreservices "github.com/ipsco/fleet/modules/core/services"
	"github.com/ipsco/fleet/modules/establishment/domain/aggregates/establishment"
	esservices "github.com/ipsco/fleet/modules/establishment/services"
	"github.com/ipsco/fleet/pkg/application"
	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/serrors"
)

type BootstrapOptions struct {
	Username string
	Email    string
	// RootName creates a top-level establishment when set.
	RootName string
	RootCode string
}

type BootstrapResult struct {
	Superuser actor.Actor
	Root      *establishment.Establishment
}

// Bootstrap creates the first superuser, who is allowed everything, and
// optionally the root of the establishment tree.
func Bootstrap(ctx context.Context, app application.Application, opts BootstrapOptions) (BootstrapResult, error) {
	actors := app.Service(coreservices.ActorService{}).(*coreservices.ActorService)
	hierarchy := app.Service(esservices.HierarchyService{}).(*esservices.HierarchyService)

	dto := &actor.CreateDTO{
		Username:    opts.Username,
		Email:       opts.Email,
		Role:        string(authz.RoleAdministrator),
		IsStaff:     true,
		IsSuperuser: true,
	}
	if errs, ok := dto.Ok(); !ok {
		return BootstrapResult{}, serrors.NewValidationError(errs)
	}

	var result BootstrapResult
	su, err := actors.Repository().Create(ctx, dto.ToEntity())
	if err != nil {
		return BootstrapResult{}, errors.Wrap(err, "create superuser")
	}
	result.Superuser = su

	if opts.RootName != "" {
		root, err := hierarchy.Create(ctx, &establishment.CreateDTO{
			Name:          opts.RootName,
			Type:          string(establishment.TypeDirection),
			Code:          opts.RootCode,
			ResponsibleID: &su.ID,
		})
		if err != nil {
			return result, errors.Wrap(err, "create root establishment")
		}
		result.Root = &root
	}
	return result, nil
}

func newBootstrapCmd() *cobra.Command {
	var opts BootstrapOptions
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first superuser and the root establishment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), func(ctx context.Context, app application.Application) error {
				res, err := Bootstrap(ctx, app, opts)
				if err != nil {
					return err
				}
				cmd.Printf("superuser %s (%s)\n", res.Superuser.Username, res.Superuser.ID)
				if res.Root != nil {
					cmd.Printf("root establishment %s (%s)\n", res.Root.Code(), res.Root.ID())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Username, "username", "admin", "superuser username")
	cmd.Flags().StringVar(&opts.Email, "email", "", "superuser email")
	cmd.Flags().StringVar(&opts.RootName, "root-name", "", "name of the root establishment, skipped when empty")
	cmd.Flags().StringVar(&opts.RootCode, "root-code", "", "code of the root establishment, generated when empty")
	return cmd
}
