package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ipsco/fleet/pkg/authz"
	"github.com/ipsco/fleet/pkg/configuration"
)

// PolicyCase is one expected role capability decision.
type PolicyCase struct {
	Role       string `yaml:"role" json:"role"`
	Capability string `yaml:"capability" json:"capability"`
	Allowed    bool   `yaml:"allowed" json:"allowed"`
	Note       string `yaml:"note,omitempty" json:"note,omitempty"`
}

type PolicyMismatch struct {
	PolicyCase
	Got    bool   `json:"got"`
	Reason string `json:"reason,omitempty"`
}

type policyFixture struct {
	Cases []PolicyCase `yaml:"cases"`
}

type capabilityChecker interface {
	HasCapability(ctx context.Context, role authz.Role, c authz.Capability) (bool, error)
}

func parseCapability(raw string) (authz.Capability, error) {
	object, action, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || object == "" || action == "" {
		return authz.Capability{}, fmt.Errorf("capability %q is not object:action", raw)
	}
	return authz.Capability{Object: object, Action: action}, nil
}

// VerifyPolicy evaluates every case of a YAML fixture and returns the ones
// whose decision differs from the expectation.
func VerifyPolicy(ctx context.Context, checker capabilityChecker, raw []byte) ([]PolicyMismatch, error) {
	var fixture policyFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return nil, errors.Wrap(err, "parse fixtures")
	}
	if len(fixture.Cases) == 0 {
		return nil, errors.New("fixtures contain no cases")
	}

	var out []PolicyMismatch
	for _, c := range fixture.Cases {
		role, err := authz.ParseRole(c.Role)
		if err != nil {
			out = append(out, PolicyMismatch{PolicyCase: c, Reason: err.Error()})
			continue
		}
		capability, err := parseCapability(c.Capability)
		if err != nil {
			out = append(out, PolicyMismatch{PolicyCase: c, Reason: err.Error()})
			continue
		}
		got, err := checker.HasCapability(ctx, role, capability)
		if err != nil {
			return nil, errors.Wrapf(err, "check %s %s", c.Role, c.Capability)
		}
		if got != c.Allowed {
			out = append(out, PolicyMismatch{PolicyCase: c, Got: got})
		}
	}
	return out, nil
}

func newPolicyCmd() *cobra.Command {
	var fixturesPath string
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Role capability policy tools",
	}
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the capability policy against a fixture of expected decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(fixturesPath)
			if err != nil {
				return err
			}
			conf := configuration.Use()
			svc, err := authz.NewService(authz.Config{
				ModelPath:  conf.Authz.ModelPath,
				PolicyPath: conf.Authz.PolicyPath,
				Logger:     conf.Logger(),
			})
			if err != nil {
				return err
			}
			mismatches, err := VerifyPolicy(cmd.Context(), svc, raw)
			if err != nil {
				return err
			}
			if len(mismatches) > 0 {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				_ = enc.Encode(mismatches)
				return fmt.Errorf("%d policy mismatches", len(mismatches))
			}
			cmd.Println("policy fixtures passed")
			return nil
		},
	}
	verify.Flags().StringVar(&fixturesPath, "fixtures", "config/authz/fixtures.yaml", "YAML file of expected decisions")
	cmd.AddCommand(verify)
	return cmd
}
