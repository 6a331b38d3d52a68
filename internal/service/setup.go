package service

import (
	"fmt"

	"github.com/Harshitk-cp/credence/internal/config"
	"github.com/Harshitk-cp/credence/internal/credence"
	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/investigator"
	"github.com/Harshitk-cp/credence/internal/metrics"
	"go.uber.org/zap"
)

// Setup gathers everything needed to build a ResolutionService with the
// built-in investigators and policies.
type Setup struct {
	Transport  investigator.TransportConfig
	HTTP       investigator.HTTPConfig
	Resolution ResolutionConfig
}

// SetupFromEnv reads the resolution settings from the environment.
func SetupFromEnv() (Setup, error) {
	mode, err := ParseFailureMode(config.FailureMode())
	if err != nil {
		return Setup{}, err
	}

	roles := make([]domain.Role, 0, len(config.PursuedRoles()))
	for _, r := range config.PursuedRoles() {
		roles = append(roles, domain.Role(r))
	}

	investigators := map[domain.Role]string{}
	if name := config.SubjectInvestigator(); name != "" {
		investigators[domain.RoleSubject] = name
	}
	if name := config.LocalInvestigator(); name != "" {
		investigators[domain.RoleLocal] = name
	}

	transport := investigator.DefaultTransportConfig()
	transport.MaxBodyBytes = config.FetchMaxBodyBytes()

	return Setup{
		Transport: transport,
		HTTP: investigator.HTTPConfig{
			Timeout: config.InvestigationTimeout(),
			RPS:     config.FetchRPS(),
			Burst:   config.FetchBurst(),
		},
		Resolution: ResolutionConfig{
			DefaultPolicy:     config.CredencePolicy(),
			PursuedRoles:      roles,
			RoleInvestigators: investigators,
			FailureMode:       mode,
			FreshnessTTL:      config.FreshnessTTL(),
			Concurrency:       config.ResolveConcurrency(),
		},
	}, nil
}

// Build wires the HTTP investigator and the policy registry into a service.
func (s Setup) Build(store domain.ContextStore, m *metrics.Metrics, logger *zap.Logger) (*ResolutionService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fetcher := investigator.NewHTTPFetcher(s.Transport)
	h := investigator.NewHTTP(fetcher, s.HTTP, logger.Named("investigator"))

	svc, err := NewResolutionService(store, investigator.NewRegistry(h), credence.NewRegistry(), s.Resolution, m, logger)
	if err != nil {
		return nil, fmt.Errorf("resolution setup: %w", err)
	}
	return svc, nil
}
