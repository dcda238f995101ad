package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
)

//go:embed assets/model.conf
var defaultModel string

//go:embed assets/policy.csv
var defaultPolicy string

// loadPolicyLines feeds csv policy lines ("p, sub, obj, act" or
// "g, member, group") into enf.
func loadPolicyLines(enf *casbin.Enforcer, raw string) error {
	for n, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		params := make([]interface{}, 0, len(fields)-1)
		for _, f := range fields[1:] {
			params = append(params, strings.TrimSpace(f))
		}
		var err error
		switch strings.TrimSpace(fields[0]) {
		case "p":
			_, err = enf.AddPolicy(params...)
		case "g":
			_, err = enf.AddGroupingPolicy(params...)
		default:
			err = fmt.Errorf("unknown policy type %q", fields[0])
		}
		if err != nil {
			return fmt.Errorf("authz: policy line %d: %w", n+1, err)
		}
	}
	return nil
}
