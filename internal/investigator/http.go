package investigator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/rdf"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type HTTPConfig struct {
	// Timeout bounds one pursuit. Expiry is reported as ErrNotCredible.
	Timeout time.Duration
	// RPS and Burst throttle outbound requests; RPS <= 0 disables it.
	RPS   float64
	Burst int
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout: 10 * time.Second,
		RPS:     5,
		Burst:   5,
	}
}

// HTTP dereferences the subject's own address with a single GET.
//
//	2xx  parse the body and insert it under the pursued role
//	3xx  no-op; redirects are not followed
//	4xx  no-op; the source has no data
//	5xx  ErrNotCredible
//
// Timeouts and transport failures are ErrNotCredible as well.
type HTTP struct {
	fetcher Fetcher
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewHTTP(fetcher Fetcher, cfg HTTPConfig, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HTTP{
		fetcher: fetcher,
		timeout: cfg.Timeout,
		logger:  logger,
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return h
}

// address is the subject role's context target, or the subject itself.
func (h *HTTP) address(inv *domain.Investigation) string {
	if id, ok := inv.ContextFor(domain.RoleSubject); ok && id != "" {
		return string(id)
	}
	return string(inv.Subject())
}

func (h *HTTP) Pursue(ctx context.Context, inv *domain.Investigation, role domain.Role) (Result, error) {
	address := h.address(inv)
	log := h.logger.With(
		zap.String("subject", inv.Subject().String()),
		zap.String("role", role.String()),
		zap.String("address", address),
	)

	fetchCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	// The throttle wait counts against the pursuit's deadline.
	if h.limiter != nil {
		if err := h.limiter.Wait(fetchCtx); err != nil {
			if ctx.Err() != nil {
				log.Debug("pursuit cancelled while throttled", zap.Error(err))
				return Result{Outcome: OutcomeCancelled}, ctx.Err()
			}
			log.Warn("throttled past pursuit deadline", zap.Error(err))
			return Result{Outcome: OutcomeUntrusted}, fmt.Errorf("%w: throttled %s: %v", domain.ErrNotCredible, address, err)
		}
	}

	resp, err := h.fetcher.Fetch(fetchCtx, http.MethodGet, address)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("pursuit cancelled", zap.Error(err))
			return Result{Outcome: OutcomeCancelled}, ctx.Err()
		}
		log.Warn("fetch failed", zap.Error(err))
		return Result{Outcome: OutcomeUntrusted}, fmt.Errorf("%w: fetch %s: %v", domain.ErrNotCredible, address, err)
	}

	log = log.With(zap.Int("status", resp.Status))
	switch {
	case resp.Status >= 200 && resp.Status < 300:
		return h.insert(inv, role, address, resp, log)
	case resp.Status >= 300 && resp.Status < 400:
		// TODO: decide whether a single same-origin redirect should be followed.
		log.Debug("redirect not followed", zap.String("location", resp.URL))
		return Result{Outcome: OutcomeNoOp, Status: resp.Status}, nil
	case resp.Status >= 400 && resp.Status < 500:
		log.Debug("source has no data")
		return Result{Outcome: OutcomeNoOp, Status: resp.Status}, nil
	default:
		log.Warn("source not credible")
		return Result{Outcome: OutcomeUntrusted, Status: resp.Status}, fmt.Errorf("%w: %s returned %d", domain.ErrNotCredible, address, resp.Status)
	}
}

func (h *HTTP) insert(inv *domain.Investigation, role domain.Role, address string, resp *Response, log *zap.Logger) (Result, error) {
	if resp.Status == http.StatusNoContent || len(resp.Body) == 0 {
		log.Debug("empty success response")
		return Result{Outcome: OutcomeNoOp, Status: resp.Status}, nil
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = rdf.MediaNTriples
	}
	g, err := rdf.Parse(contentType, resp.Body)
	if err != nil {
		log.Warn("unparseable response", zap.String("content_type", resp.ContentType), zap.Error(err))
		return Result{Outcome: OutcomeUntrusted, Status: resp.Status}, fmt.Errorf("%w: %s: %v", domain.ErrNotCredible, address, err)
	}

	id := domain.ContextID(resp.URL)
	if id == "" {
		id = domain.ContextID(address)
	}
	if err := inv.Insert(role, id, g); err != nil {
		if errors.Is(err, domain.ErrContextExists) {
			// another role already holds this document
			log.Debug("context already present", zap.String("context", id.String()))
			return Result{Outcome: OutcomeNoOp, Context: id, Status: resp.Status}, nil
		}
		return Result{Outcome: OutcomeNoOp, Status: resp.Status}, err
	}

	log.Debug("context inserted", zap.String("context", id.String()), zap.Int("statements", g.Len()))
	return Result{Outcome: OutcomeInserted, Context: id, Status: resp.Status}, nil
}
