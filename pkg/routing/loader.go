package routing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrPolicyNotFound = errors.New("routing policy not found")

type policyFile struct {
	Version  int                 `yaml:"version"`
	Stores   map[string][]Entity `yaml:"stores"`
	Priority []Entity            `yaml:"priority"`
}

// PolicyOptions describes where a Policy comes from. Non-empty entity lists
// replace whatever the file (or the defaults) declared for that set.
type PolicyOptions struct {
	Path      string
	Secondary []Entity
	Priority  []Entity
}

func DefaultPolicyPath() string {
	if p := strings.TrimSpace(os.Getenv("ROUTING_POLICY_PATH")); p != "" {
		return p
	}

	const relative = "config/routing/policy.yaml"
	if wd, err := os.Getwd(); err == nil {
		if repoRoot, ok := findGoModRoot(wd); ok {
			abs := filepath.Join(repoRoot, filepath.FromSlash(relative))
			if _, statErr := os.Stat(abs); statErr == nil {
				return abs
			}
		}
	}

	return filepath.FromSlash(relative)
}

// LoadPolicyFile reads a versioned YAML placement file.
func LoadPolicyFile(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPolicyPath()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, path)
		}
		return nil, err
	}
	return ParsePolicy(raw)
}

func ParsePolicy(raw []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if file.Version != 1 {
		return nil, fmt.Errorf("unsupported routing policy version: %d", file.Version)
	}

	seen := make(map[Entity]Store)
	var secondary []Entity
	for name, entities := range file.Stores {
		store, err := ParseStore(name)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			e = NormalizeEntity(e)
			if prev, ok := seen[e]; ok && prev != store {
				return nil, fmt.Errorf("routing policy: entity %q assigned to both %s and %s", e, prev, store)
			}
			seen[e] = store
			if store == StoreSecondary {
				secondary = append(secondary, e)
			}
		}
	}
	return NewPolicy(secondary, file.Priority)
}

// BuildPolicy resolves the process-wide placement table. An explicit Path
// must exist; otherwise the default path is used when present and the
// built-in defaults when not.
func BuildPolicy(opts PolicyOptions) (*Policy, error) {
	base := DefaultPolicy()
	switch {
	case strings.TrimSpace(opts.Path) != "":
		p, err := LoadPolicyFile(opts.Path)
		if err != nil {
			return nil, err
		}
		base = p
	default:
		p, err := LoadPolicyFile("")
		if err != nil && !errors.Is(err, ErrPolicyNotFound) {
			return nil, err
		}
		if err == nil {
			base = p
		}
	}

	secondary, priority := base.Secondary(), base.Priority()
	if len(opts.Secondary) > 0 {
		secondary = opts.Secondary
	}
	if len(opts.Priority) > 0 {
		priority = opts.Priority
	}
	return NewPolicy(secondary, priority)
}

func findGoModRoot(start string) (string, bool) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
