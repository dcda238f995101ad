package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/sirupsen/logrus"
)

var ErrNotFileBacked = errors.New("authz: policy is embedded and cannot be reloaded")

// Service maps roles to capabilities. It is the only place that knows which
// role may do what; every decision fails closed.
type Service struct {
	cfg        Config
	enforcer   *casbin.Enforcer
	logger     *logrus.Entry
	fileBacked bool
	mu         sync.RWMutex
}

// NewService constructs a Service with the provided config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	var logger *logrus.Entry
	if cfg.Logger != nil {
		logger = cfg.Logger.WithField("component", "authz")
	} else {
		logger = logrus.WithField("component", "authz")
	}

	enf, fileBacked, err := newEnforcer(cfg)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		enforcer:   enf,
		logger:     logger,
		fileBacked: fileBacked,
	}, nil
}

func newEnforcer(cfg Config) (*casbin.Enforcer, bool, error) {
	switch {
	case cfg.ModelPath != "":
		enf, err := casbin.NewEnforcer(cfg.ModelPath, fileadapter.NewAdapter(cfg.PolicyPath))
		if err != nil {
			return nil, false, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
		}
		return enf, true, nil
	case cfg.PolicyPath != "":
		m, err := model.NewModelFromString(defaultModel)
		if err != nil {
			return nil, false, fmt.Errorf("authz: invalid embedded model: %w", err)
		}
		enf, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
		if err != nil {
			return nil, false, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
		}
		return enf, true, nil
	default:
		m, err := model.NewModelFromString(defaultModel)
		if err != nil {
			return nil, false, fmt.Errorf("authz: invalid embedded model: %w", err)
		}
		enf, err := casbin.NewEnforcer(m)
		if err != nil {
			return nil, false, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
		}
		if err := loadPolicyLines(enf, defaultPolicy); err != nil {
			return nil, false, err
		}
		return enf, false, nil
	}
}

// Check evaluates a request without returning an authorization error.
func (s *Service) Check(ctx context.Context, req Request) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	res, err := s.enforcer.Enforce(req.Subject, req.Object, req.Action)
	if err != nil {
		return false, fmt.Errorf("authz: enforce failed: %w", err)
	}
	recordDecision(req, res, time.Since(start))
	return res, nil
}

// Authorize returns an error if the request is denied.
func (s *Service) Authorize(ctx context.Context, req Request) error {
	allowed, err := s.Check(ctx, req)
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.WithContext(ctx).WithFields(logrus.Fields{
			"subject": req.Subject,
			"object":  req.Object,
			"action":  req.Action,
		}).Debug("authz denied request")
		return forbiddenError(req)
	}
	return nil
}

// HasCapability reports whether role is granted c. Unknown roles hold nothing.
func (s *Service) HasCapability(ctx context.Context, role Role, c Capability) (bool, error) {
	if !role.Valid() {
		return false, nil
	}
	return s.Check(ctx, NewRequest(SubjectForRole(role), c.Object, c.Action))
}

// RequireCapability is HasCapability returning a forbidden error on denial.
func (s *Service) RequireCapability(ctx context.Context, role Role, c Capability) error {
	req := NewRequest(SubjectForRole(role), c.Object, c.Action)
	if !role.Valid() {
		return forbiddenError(req)
	}
	return s.Authorize(ctx, req)
}

// ReloadPolicy reloads policy data from disk.
func (s *Service) ReloadPolicy(ctx context.Context) error {
	if !s.fileBacked {
		return ErrNotFileBacked
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload policy failed: %w", err)
	}
	s.logger.WithContext(ctx).Info("authz policy reloaded")
	return nil
}

var (
	defaultServiceOnce sync.Once
	defaultService     *Service
	defaultServiceErr  error
)

// Use returns a singleton Service configured via environment variables.
func Use() *Service {
	defaultServiceOnce.Do(func() {
		defaultService, defaultServiceErr = NewService(DefaultConfig())
	})
	if defaultServiceErr != nil {
		panic(defaultServiceErr)
	}
	return defaultService
}
