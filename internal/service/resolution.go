package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/credence/internal/credence"
	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/investigator"
	"github.com/Harshitk-cp/credence/internal/metrics"
	"github.com/Harshitk-cp/credence/internal/rdf"
	"github.com/Harshitk-cp/credence/internal/registry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FailureMode decides what a failed pursuit does to the whole resolution.
type FailureMode string

const (
	// FailureSkip leaves the failed role unset and carries on.
	FailureSkip FailureMode = "skip"
	// FailureAbort returns the pursuit's error from Resolve.
	FailureAbort FailureMode = "abort"
)

func ParseFailureMode(s string) (FailureMode, error) {
	switch FailureMode(s) {
	case FailureSkip, FailureAbort:
		return FailureMode(s), nil
	case "":
		return FailureSkip, nil
	}
	return "", fmt.Errorf("unknown failure mode: %s (valid options: abort, skip)", s)
}

type ResolutionConfig struct {
	DefaultPolicy string
	// PursuedRoles are investigated when missing or stale, in order.
	PursuedRoles []domain.Role
	// RoleInvestigators maps a role to an investigator name. Roles without
	// an entry fall back to investigator.Unsupported.
	RoleInvestigators map[domain.Role]string
	FailureMode       FailureMode
	// FreshnessTTL is how long a stored context is reused; 0 keeps it forever.
	FreshnessTTL time.Duration
	Concurrency  int
}

func DefaultResolutionConfig() ResolutionConfig {
	return ResolutionConfig{
		DefaultPolicy:     string(credence.NameMaySubject),
		PursuedRoles:      []domain.Role{domain.RoleSubject},
		RoleInvestigators: map[domain.Role]string{domain.RoleSubject: string(investigator.NameHTTP)},
		FailureMode:       FailureSkip,
		FreshnessTTL:      time.Hour,
		Concurrency:       8,
	}
}

type ResolveRequest struct {
	Subject domain.Subject
	Policy  string
	Refresh bool
}

// Pursuit records one investigator run during a resolution.
type Pursuit struct {
	Role         domain.Role          `json:"role"`
	Investigator string               `json:"investigator"`
	Outcome      investigator.Outcome `json:"outcome"`
	Context      domain.ContextID     `json:"context,omitempty"`
	Status       int                  `json:"status,omitempty"`
	Error        string               `json:"error,omitempty"`
}

type Resolution struct {
	Subject    domain.Subject                    `json:"subject"`
	Policy     string                            `json:"policy"`
	Candidates []domain.ContextID                `json:"candidates"`
	Credible   []domain.ContextID                `json:"credible"`
	Roles      map[domain.Role]domain.ContextID `json:"roles"`
	Pursuits   []Pursuit                         `json:"pursuits,omitempty"`
	Statements int                               `json:"statements"`
	Graph      *rdf.Graph                        `json:"-"`
}

type ResolutionService struct {
	store         domain.ContextStore
	investigators *registry.Registry[investigator.Investigator]
	policies      *registry.Registry[credence.Policy]
	cfg           ResolutionConfig
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewResolutionService checks every configured name against the registries
// so that a bad configuration fails at startup.
func NewResolutionService(
	store domain.ContextStore,
	investigators *registry.Registry[investigator.Investigator],
	policies *registry.Registry[credence.Policy],
	cfg ResolutionConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*ResolutionService, error) {
	if _, err := policies.Lookup(cfg.DefaultPolicy); err != nil {
		return nil, err
	}
	for role, name := range cfg.RoleInvestigators {
		if _, err := investigators.Lookup(name); err != nil {
			return nil, fmt.Errorf("role %s: %w", role, err)
		}
	}
	if cfg.FailureMode == "" {
		cfg.FailureMode = FailureSkip
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ResolutionService{
		store:         store,
		investigators: investigators,
		policies:      policies,
		cfg:           cfg,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (s *ResolutionService) Investigators() []string { return s.investigators.Names() }

func (s *ResolutionService) Policies() []string { return s.policies.Names() }

func (s *ResolutionService) DefaultPolicy() string { return s.cfg.DefaultPolicy }

func (s *ResolutionService) Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error) {
	policyName := req.Policy
	if policyName == "" {
		policyName = s.cfg.DefaultPolicy
	}
	policy, err := s.policies.Lookup(policyName)
	if err != nil {
		return nil, err
	}

	res, err := s.resolve(ctx, req, policyName, policy)
	if err != nil {
		s.metrics.ObserveResolution(policyName, "error", 0)
		return nil, err
	}
	s.metrics.ObserveResolution(policyName, "ok", len(res.Credible))
	return res, nil
}

func (s *ResolutionService) resolve(ctx context.Context, req ResolveRequest, policyName string, policy credence.Policy) (*Resolution, error) {
	inv, stored, err := s.load(ctx, req.Subject)
	if err != nil {
		return nil, err
	}

	var pursuits []Pursuit
	for _, role := range s.cfg.PursuedRoles {
		if !s.needsPursuit(stored, role, req.Refresh) {
			continue
		}
		p, err := s.pursue(ctx, inv, role)
		pursuits = append(pursuits, p)
		if err != nil {
			return nil, err
		}
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	candidates := inv.Contexts()
	credible := policy.Credible(candidates, inv.Roles())
	graph := inv.CredibleGraph(credible)

	s.logger.Info("subject resolved",
		zap.String("subject", req.Subject.String()),
		zap.String("policy", policyName),
		zap.Int("candidates", len(candidates)),
		zap.Int("credible", len(credible)),
		zap.Int("statements", graph.Len()),
	)

	return &Resolution{
		Subject:    req.Subject,
		Policy:     policyName,
		Candidates: candidates,
		Credible:   credible,
		Roles:      inv.Roles(),
		Pursuits:   pursuits,
		Statements: graph.Len(),
		Graph:      graph,
	}, nil
}

// load seeds an investigation with the subject's stored contexts.
func (s *ResolutionService) load(ctx context.Context, subject domain.Subject) (*domain.Investigation, map[domain.Role]domain.StoredContext, error) {
	list, err := s.store.ListBySubject(ctx, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("load contexts: %w", err)
	}

	inv := domain.NewInvestigation(subject)
	stored := make(map[domain.Role]domain.StoredContext, len(list))
	for _, c := range list {
		stored[c.Role] = c
		if err := inv.Insert(c.Role, c.ContextID, c.Graph); err != nil {
			if !errors.Is(err, domain.ErrContextExists) {
				return nil, nil, err
			}
			inv.Assign(c.Role, c.ContextID)
		}
	}
	return inv, stored, nil
}

func (s *ResolutionService) needsPursuit(stored map[domain.Role]domain.StoredContext, role domain.Role, refresh bool) bool {
	c, ok := stored[role]
	if !ok || refresh {
		return true
	}
	return c.Stale(s.now(), s.cfg.FreshnessTTL)
}

func (s *ResolutionService) investigatorFor(role domain.Role) (string, investigator.Investigator) {
	name, ok := s.cfg.RoleInvestigators[role]
	if !ok {
		return "unsupported", investigator.Unsupported{}
	}
	inv, err := s.investigators.Lookup(name)
	if err != nil {
		// names are checked at construction; a later re-registration can
		// only replace, never remove
		return "unsupported", investigator.Unsupported{}
	}
	return name, inv
}

// pursue replaces the role's context with a fresh one. A stale context is
// dropped first so a failed pursuit never leaves it trusted.
func (s *ResolutionService) pursue(ctx context.Context, inv *domain.Investigation, role domain.Role) (Pursuit, error) {
	if prior, ok := inv.ContextFor(role); ok {
		inv.Remove(prior)
	}

	name, strategy := s.investigatorFor(role)
	log := s.logger.With(
		zap.String("subject", inv.Subject().String()),
		zap.String("role", role.String()),
		zap.String("investigator", name),
	)

	start := time.Now()
	res, err := strategy.Pursue(ctx, inv, role)
	s.metrics.ObservePursuit(name, role.String(), string(res.Outcome), time.Since(start))

	p := Pursuit{
		Role:         role,
		Investigator: name,
		Outcome:      res.Outcome,
		Context:      res.Context,
		Status:       res.Status,
	}
	if err != nil {
		p.Error = err.Error()
	}

	switch res.Outcome {
	case investigator.OutcomeInserted:
		s.persist(ctx, inv, role, res.Context, log)
		return p, nil
	case investigator.OutcomeUntrusted, investigator.OutcomeUnsupported:
		if s.cfg.FailureMode == FailureAbort {
			return p, err
		}
		log.Warn("pursuit failed, role skipped", zap.String("outcome", string(res.Outcome)), zap.Error(err))
		return p, nil
	default:
		// no-op with an error and cancellation both end the resolution
		return p, err
	}
}

func (s *ResolutionService) persist(ctx context.Context, inv *domain.Investigation, role domain.Role, id domain.ContextID, log *zap.Logger) {
	g, _ := inv.Graph(id)
	err := s.store.Save(ctx, &domain.StoredContext{
		Subject:   inv.Subject(),
		ContextID: id,
		Role:      role,
		Graph:     g,
		FetchedAt: s.now().UTC(),
	})
	if err != nil {
		log.Warn("failed to store context", zap.String("context", id.String()), zap.Error(err))
	}
}

// BatchResult is one subject's outcome from ResolveMany.
type BatchResult struct {
	Subject    domain.Subject
	Resolution *Resolution
	Err        error
}

// ResolveMany resolves subjects in parallel. Each subject gets its own
// investigation; one subject's failure does not affect the others.
func (s *ResolutionService) ResolveMany(ctx context.Context, subjects []domain.Subject, policy string, refresh bool) ([]BatchResult, error) {
	results := make([]BatchResult, len(subjects))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, subject := range subjects {
		i, subject := i, subject
		g.Go(func() error {
			res, err := s.Resolve(ctx, ResolveRequest{Subject: subject, Policy: policy, Refresh: refresh})
			results[i] = BatchResult{Subject: subject, Resolution: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

// AssertLocal stores g as the subject's local context, replacing the
// previous one.
func (s *ResolutionService) AssertLocal(ctx context.Context, subject domain.Subject, g *rdf.Graph) (*domain.StoredContext, error) {
	c := &domain.StoredContext{
		Subject:   subject,
		ContextID: domain.ContextID("urn:uuid:" + uuid.NewString()),
		Role:      domain.RoleLocal,
		Graph:     g,
		FetchedAt: s.now().UTC(),
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("local context stored",
		zap.String("subject", subject.String()),
		zap.String("context", c.ContextID.String()),
		zap.Int("statements", g.Len()),
	)
	return c, nil
}

func (s *ResolutionService) Contexts(ctx context.Context, subject domain.Subject) ([]domain.StoredContext, error) {
	return s.store.ListBySubject(ctx, subject)
}

func (s *ResolutionService) Forget(ctx context.Context, subject domain.Subject) (int64, error) {
	return s.store.DeleteBySubject(ctx, subject)
}
