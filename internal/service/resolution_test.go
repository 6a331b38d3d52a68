package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Harshitk-cp/credence/internal/credence"
	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/investigator"
	"github.com/Harshitk-cp/credence/internal/metrics"
	"github.com/Harshitk-cp/credence/internal/rdf"
	"github.com/Harshitk-cp/credence/internal/registry"
	"github.com/Harshitk-cp/credence/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

const alice = domain.Subject("http://example.org/alice")

func statement(object string) rdf.Triple {
	return rdf.NewTriple(alice.Term(), rdf.IRI("http://example.org/name"), rdf.Literal(object))
}

// stubInvestigator inserts a fixed graph or fails with a fixed outcome.
type stubInvestigator struct {
	outcome investigator.Outcome
	context domain.ContextID
	graph   *rdf.Graph
	err     error
	calls   atomic.Int32
}

func (s *stubInvestigator) Pursue(ctx context.Context, inv *domain.Investigation, role domain.Role) (investigator.Result, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return investigator.Result{Outcome: investigator.OutcomeCancelled}, err
	}
	if s.outcome == investigator.OutcomeInserted {
		if err := inv.Insert(role, s.context, s.graph); err != nil {
			return investigator.Result{Outcome: investigator.OutcomeNoOp}, err
		}
		return investigator.Result{Outcome: s.outcome, Context: s.context, Status: http.StatusOK}, nil
	}
	return investigator.Result{Outcome: s.outcome}, s.err
}

func inserting(id domain.ContextID, objects ...string) *stubInvestigator {
	g := rdf.NewGraph()
	for _, o := range objects {
		g.Add(statement(o))
	}
	return &stubInvestigator{outcome: investigator.OutcomeInserted, context: id, graph: g}
}

func untrusted() *stubInvestigator {
	return &stubInvestigator{
		outcome: investigator.OutcomeUntrusted,
		err:     fmt.Errorf("%w: returned 503", domain.ErrNotCredible),
	}
}

type fixture struct {
	svc     *ResolutionService
	store   *store.MemoryStore
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, stub investigator.Investigator, mutate func(*ResolutionConfig)) *fixture {
	t.Helper()

	investigators := registry.New[investigator.Investigator](investigator.Purpose)
	investigators.Register("stub", stub)

	cfg := DefaultResolutionConfig()
	cfg.RoleInvestigators = map[domain.Role]string{domain.RoleSubject: "stub"}
	if mutate != nil {
		mutate(&cfg)
	}

	st := store.NewMemoryStore()
	m := metrics.New()
	svc, err := NewResolutionService(st, investigators, credence.NewRegistry(), cfg, m, testLogger())
	require.NoError(t, err)
	return &fixture{svc: svc, store: st, metrics: m}
}

func (f *fixture) assertLocal(t *testing.T, objects ...string) domain.ContextID {
	t.Helper()
	g := rdf.NewGraph()
	for _, o := range objects {
		g.Add(statement(o))
	}
	c, err := f.svc.AssertLocal(context.Background(), alice, g)
	require.NoError(t, err)
	return c.ContextID
}

func TestNewResolutionService_RejectsUnknownNames(t *testing.T) {
	investigators := investigator.NewRegistry(nil)
	policies := credence.NewRegistry()

	cfg := DefaultResolutionConfig()
	cfg.DefaultPolicy = "most_popular"
	_, err := NewResolutionService(store.NewMemoryStore(), investigators, policies, cfg, nil, nil)
	require.ErrorIs(t, err, registry.ErrUnknownName)
	assert.Contains(t, err.Error(), "unknown credibility policy: most_popular")

	cfg = DefaultResolutionConfig()
	_, err = NewResolutionService(store.NewMemoryStore(), investigators, policies, cfg, nil, nil)
	require.ErrorIs(t, err, registry.ErrUnknownName)
	assert.Contains(t, err.Error(), "unknown investigator: http")
}

func TestParseFailureMode(t *testing.T) {
	m, err := ParseFailureMode("")
	require.NoError(t, err)
	assert.Equal(t, FailureSkip, m)

	m, err = ParseFailureMode("abort")
	require.NoError(t, err)
	assert.Equal(t, FailureAbort, m)

	_, err = ParseFailureMode("retry")
	assert.Error(t, err)
}

func TestResolve_PursuesAndPersistsSubject(t *testing.T) {
	stub := inserting("http://example.org/alice", "Alice")
	f := newFixture(t, stub, nil)
	ctx := context.Background()

	res, err := f.svc.Resolve(ctx, ResolveRequest{Subject: alice})
	require.NoError(t, err)

	assert.Equal(t, "may_subject", res.Policy)
	assert.Equal(t, []domain.ContextID{"http://example.org/alice"}, res.Credible)
	assert.Equal(t, 1, res.Statements)
	assert.True(t, res.Graph.Has(statement("Alice")))
	require.Len(t, res.Pursuits, 1)
	assert.Equal(t, investigator.OutcomeInserted, res.Pursuits[0].Outcome)

	stored, err := f.store.ListBySubject(ctx, alice)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.RoleSubject, stored[0].Role)
	assert.Equal(t, 1, stored[0].Graph.Len())
}

func TestResolve_PrefersSubjectOverLocal(t *testing.T) {
	f := newFixture(t, inserting("http://example.org/alice", "Alice"), nil)
	local := f.assertLocal(t, "Al")

	res, err := f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice, Policy: "prefer-if-available(subject)"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.ContextID{local, "http://example.org/alice"}, res.Candidates)
	assert.Equal(t, []domain.ContextID{"http://example.org/alice"}, res.Credible)
	assert.True(t, res.Graph.Has(statement("Alice")))
	assert.False(t, res.Graph.Has(statement("Al")))
}

func TestResolve_AnyUnionsEveryContext(t *testing.T) {
	f := newFixture(t, inserting("http://example.org/alice", "Alice"), nil)
	f.assertLocal(t, "Al", "Alice")

	res, err := f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice, Policy: "any"})
	require.NoError(t, err)

	assert.Len(t, res.Credible, 2)
	assert.Equal(t, 2, res.Statements)
}

func TestResolve_UntrustedSkippedFallsBackToLocal(t *testing.T) {
	f := newFixture(t, untrusted(), nil)
	local := f.assertLocal(t, "Al")

	res, err := f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice})
	require.NoError(t, err)

	assert.Equal(t, []domain.ContextID{local}, res.Credible)
	_, ok := res.Roles[domain.RoleSubject]
	assert.False(t, ok)
	require.Len(t, res.Pursuits, 1)
	assert.Equal(t, investigator.OutcomeUntrusted, res.Pursuits[0].Outcome)
	assert.NotEmpty(t, res.Pursuits[0].Error)

	res, err = f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice, Policy: "must_subject"})
	require.NoError(t, err)
	assert.Empty(t, res.Credible)
	assert.Equal(t, 0, res.Statements)
}

func TestResolve_AbortModeReturnsError(t *testing.T) {
	f := newFixture(t, untrusted(), func(c *ResolutionConfig) { c.FailureMode = FailureAbort })

	_, err := f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice})
	assert.ErrorIs(t, err, domain.ErrNotCredible)
}

func TestResolve_RoleWithoutInvestigatorIsUnsupported(t *testing.T) {
	f := newFixture(t, inserting("http://example.org/alice", "Alice"), func(c *ResolutionConfig) {
		c.PursuedRoles = []domain.Role{domain.RoleSubject, domain.RoleLocal}
	})

	res, err := f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice})
	require.NoError(t, err)
	require.Len(t, res.Pursuits, 2)
	assert.Equal(t, investigator.OutcomeUnsupported, res.Pursuits[1].Outcome)
	assert.Equal(t, "unsupported", res.Pursuits[1].Investigator)

	f = newFixture(t, inserting("http://example.org/alice", "Alice"), func(c *ResolutionConfig) {
		c.PursuedRoles = []domain.Role{domain.RoleLocal}
		c.FailureMode = FailureAbort
	})
	_, err = f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice})
	assert.ErrorIs(t, err, domain.ErrNoCredibleResults)
}

func TestResolve_ReusesFreshContext(t *testing.T) {
	stub := inserting("http://example.org/alice", "Alice")
	f := newFixture(t, stub, nil)
	ctx := context.Background()

	_, err := f.svc.Resolve(ctx, ResolveRequest{Subject: alice})
	require.NoError(t, err)
	res, err := f.svc.Resolve(ctx, ResolveRequest{Subject: alice})
	require.NoError(t, err)

	assert.Equal(t, int32(1), stub.calls.Load())
	assert.Empty(t, res.Pursuits)
	assert.Equal(t, []domain.ContextID{"http://example.org/alice"}, res.Credible)
}

func TestResolve_RefreshAndStaleContexts(t *testing.T) {
	stub := inserting("http://example.org/alice", "Alice")
	f := newFixture(t, stub, func(c *ResolutionConfig) { c.FreshnessTTL = time.Minute })
	ctx := context.Background()

	_, err := f.svc.Resolve(ctx, ResolveRequest{Subject: alice})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, ResolveRequest{Subject: alice, Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), stub.calls.Load())

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	res, err := f.svc.Resolve(ctx, ResolveRequest{Subject: alice})
	require.NoError(t, err)
	assert.Equal(t, int32(3), stub.calls.Load())
	assert.Equal(t, []domain.ContextID{"http://example.org/alice"}, res.Credible)
}

func TestResolve_StaleContextDroppedWhenSourceFails(t *testing.T) {
	good := inserting("http://example.org/alice", "Alice")
	f := newFixture(t, good, nil)
	ctx := context.Background()
	_, err := f.svc.Resolve(ctx, ResolveRequest{Subject: alice})
	require.NoError(t, err)

	f.svc.investigators.Register("stub", untrusted())
	res, err := f.svc.Resolve(ctx, ResolveRequest{Subject: alice, Refresh: true})
	require.NoError(t, err)
	assert.Empty(t, res.Credible)
}

func TestResolve_UnknownPolicyPursuesNothing(t *testing.T) {
	stub := inserting("http://example.org/alice", "Alice")
	f := newFixture(t, stub, nil)

	_, err := f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice, Policy: "most_popular"})
	require.ErrorIs(t, err, registry.ErrUnknownName)
	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestResolve_Cancelled(t *testing.T) {
	f := newFixture(t, inserting("http://example.org/alice", "Alice"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Resolve(ctx, ResolveRequest{Subject: alice})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_RecordsMetrics(t *testing.T) {
	f := newFixture(t, inserting("http://example.org/alice", "Alice"), nil)
	_, err := f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `credence_pursuits_total{investigator="stub",outcome="inserted",role="subject"} 1`)
	assert.Contains(t, body, `credence_resolutions_total{policy="may_subject",result="ok"} 1`)
}

// MockContextStore mocks domain.ContextStore.
type MockContextStore struct {
	mock.Mock
}

func (m *MockContextStore) Save(ctx context.Context, c *domain.StoredContext) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContextStore) ListBySubject(ctx context.Context, subject domain.Subject) ([]domain.StoredContext, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StoredContext), args.Error(1)
}

func (m *MockContextStore) DeleteBySubject(ctx context.Context, subject domain.Subject) (int64, error) {
	args := m.Called(ctx, subject)
	return args.Get(0).(int64), args.Error(1)
}

func TestResolve_StoreFailures(t *testing.T) {
	investigators := registry.New[investigator.Investigator](investigator.Purpose)
	investigators.Register("stub", inserting("http://example.org/alice", "Alice"))
	cfg := DefaultResolutionConfig()
	cfg.RoleInvestigators = map[domain.Role]string{domain.RoleSubject: "stub"}

	st := new(MockContextStore)
	st.On("ListBySubject", mock.Anything, alice).Return([]domain.StoredContext{}, nil).Once()
	st.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	svc, err := NewResolutionService(st, investigators, credence.NewRegistry(), cfg, nil, testLogger())
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), ResolveRequest{Subject: alice})
	require.NoError(t, err, "a failed save does not fail the resolution")
	assert.Len(t, res.Credible, 1)

	st.On("ListBySubject", mock.Anything, alice).Return(nil, errors.New("connection reset")).Once()
	_, err = svc.Resolve(context.Background(), ResolveRequest{Subject: alice})
	assert.ErrorContains(t, err, "load contexts")

	st.AssertExpectations(t)
}

func TestResolveMany_IndependentSubjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/alice":
			w.Header().Set("Content-Type", rdf.MediaNTriples)
			_, _ = w.Write([]byte("<" + "http://example.org/alice" + "> <http://example.org/name> \"Alice\" .\n"))
		case "/bob":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	h := investigator.NewHTTP(investigator.NewHTTPFetcher(investigator.DefaultTransportConfig()),
		investigator.HTTPConfig{Timeout: 5 * time.Second, RPS: 100, Burst: 10}, testLogger())
	svc, err := NewResolutionService(store.NewMemoryStore(), investigator.NewRegistry(h), credence.NewRegistry(),
		DefaultResolutionConfig(), nil, testLogger())
	require.NoError(t, err)

	subjects := []domain.Subject{
		domain.Subject(srv.URL + "/alice"),
		domain.Subject(srv.URL + "/bob"),
		domain.Subject(srv.URL + "/carol"),
	}
	results, err := svc.ResolveMany(context.Background(), subjects, "must_subject", false)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, subjects[i], r.Subject)
		require.NoError(t, r.Err)
	}
	assert.Equal(t, 1, results[0].Resolution.Statements)
	assert.Equal(t, []domain.ContextID{domain.ContextID(srv.URL + "/alice")}, results[0].Resolution.Credible)
	assert.Empty(t, results[1].Resolution.Credible)
	assert.Empty(t, results[2].Resolution.Credible)
}

func aliceSource(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", rdf.MediaNTriples)
		_, _ = w.Write([]byte("<http://example.org/alice> <http://example.org/name> \"Alice\" .\n"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func httpService(t *testing.T, cfg investigator.HTTPConfig, mutate func(*ResolutionConfig)) *ResolutionService {
	t.Helper()
	h := investigator.NewHTTP(investigator.NewHTTPFetcher(investigator.DefaultTransportConfig()), cfg, testLogger())
	rc := DefaultResolutionConfig()
	if mutate != nil {
		mutate(&rc)
	}
	svc, err := NewResolutionService(store.NewMemoryStore(), investigator.NewRegistry(h), credence.NewRegistry(), rc, nil, testLogger())
	require.NoError(t, err)
	return svc
}

func TestResolve_ThrottledPursuitSkippedFallsBackToLocal(t *testing.T) {
	srv := aliceSource(t)
	svc := httpService(t, investigator.HTTPConfig{Timeout: 5 * time.Second, RPS: 0.01, Burst: 1}, nil)

	_, err := svc.Resolve(context.Background(), ResolveRequest{Subject: domain.Subject(srv.URL + "/bob")})
	require.NoError(t, err)

	subject := domain.Subject(srv.URL + "/alice")
	local, err := svc.AssertLocal(context.Background(), subject, rdf.NewGraph(statement("Al")))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := svc.Resolve(ctx, ResolveRequest{Subject: subject})
	require.NoError(t, err)

	assert.Equal(t, []domain.ContextID{local.ContextID}, res.Credible)
	require.Len(t, res.Pursuits, 1)
	assert.Equal(t, investigator.OutcomeUntrusted, res.Pursuits[0].Outcome)
	assert.Contains(t, res.Pursuits[0].Error, domain.ErrNotCredible.Error())
}

func TestResolve_ThrottledPursuitAbortIsNotCredible(t *testing.T) {
	srv := aliceSource(t)
	svc := httpService(t, investigator.HTTPConfig{Timeout: 5 * time.Second, RPS: 0.01, Burst: 1},
		func(c *ResolutionConfig) { c.FailureMode = FailureAbort })

	_, err := svc.Resolve(context.Background(), ResolveRequest{Subject: domain.Subject(srv.URL + "/bob")})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), ResolveRequest{Subject: domain.Subject(srv.URL + "/alice")})
	assert.ErrorIs(t, err, domain.ErrNotCredible)
}

func TestResolve_RolesSharingOneDocument(t *testing.T) {
	srv := aliceSource(t)
	svc := httpService(t, investigator.HTTPConfig{Timeout: 5 * time.Second}, func(c *ResolutionConfig) {
		c.PursuedRoles = []domain.Role{domain.RoleSubject, domain.RoleLocal}
		c.RoleInvestigators = map[domain.Role]string{domain.RoleSubject: "http", domain.RoleLocal: "http"}
	})

	res, err := svc.Resolve(context.Background(), ResolveRequest{Subject: domain.Subject(srv.URL + "/alice"), Policy: "any"})
	require.NoError(t, err)

	doc := domain.ContextID(srv.URL + "/alice")
	assert.Equal(t, []domain.ContextID{doc}, res.Credible)
	assert.Equal(t, 1, res.Statements)
	require.Len(t, res.Pursuits, 2)
	assert.Equal(t, investigator.OutcomeInserted, res.Pursuits[0].Outcome)
	assert.Equal(t, investigator.OutcomeNoOp, res.Pursuits[1].Outcome)
	assert.Empty(t, res.Pursuits[1].Error)
}

func TestContextsAndForget(t *testing.T) {
	f := newFixture(t, inserting("http://example.org/alice", "Alice"), nil)
	ctx := context.Background()
	f.assertLocal(t, "Al")
	_, err := f.svc.Resolve(ctx, ResolveRequest{Subject: alice})
	require.NoError(t, err)

	list, err := f.svc.Contexts(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := f.svc.Forget(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err = f.svc.Contexts(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAssertLocal_ReplacesPrevious(t *testing.T) {
	f := newFixture(t, untrusted(), nil)
	f.assertLocal(t, "first")
	second := f.assertLocal(t, "second")

	res, err := f.svc.Resolve(context.Background(), ResolveRequest{Subject: alice, Policy: "must_local"})
	require.NoError(t, err)
	assert.Equal(t, []domain.ContextID{second}, res.Credible)
	assert.True(t, res.Graph.Has(statement("second")))
	assert.False(t, res.Graph.Has(statement("first")))
}

func TestNames(t *testing.T) {
	f := newFixture(t, untrusted(), nil)
	assert.Equal(t, []string{"stub"}, f.svc.Investigators())
	assert.Contains(t, f.svc.Policies(), "may_subject")
}

func TestSetupFromEnv(t *testing.T) {
	t.Setenv("FAILURE_MODE", "abort")
	t.Setenv("PURSUED_ROLES", "subject,local")
	t.Setenv("SUBJECT_INVESTIGATOR", "null")
	t.Setenv("LOCAL_INVESTIGATOR", "null")
	t.Setenv("CREDENCE_POLICY", "must_local")
	t.Setenv("FETCH_MAX_BODY_BYTES", "1024")

	setup, err := SetupFromEnv()
	require.NoError(t, err)
	assert.Equal(t, FailureAbort, setup.Resolution.FailureMode)
	assert.Equal(t, []domain.Role{domain.RoleSubject, domain.RoleLocal}, setup.Resolution.PursuedRoles)
	assert.Equal(t, int64(1024), setup.Transport.MaxBodyBytes)

	svc, err := setup.Build(store.NewMemoryStore(), nil, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "must_local", svc.DefaultPolicy())

	res, err := svc.Resolve(context.Background(), ResolveRequest{Subject: alice})
	require.NoError(t, err)
	require.Len(t, res.Pursuits, 2)
	// the null investigator leaves an empty local context
	assert.Len(t, res.Credible, 1)
	assert.Equal(t, 0, res.Statements)

	t.Setenv("FAILURE_MODE", "retry")
	_, err = SetupFromEnv()
	assert.Error(t, err)

	t.Setenv("FAILURE_MODE", "")
	t.Setenv("SUBJECT_INVESTIGATOR", "carrier-pigeon")
	setup, err = SetupFromEnv()
	require.NoError(t, err)
	_, err = setup.Build(store.NewMemoryStore(), nil, nil)
	assert.ErrorIs(t, err, registry.ErrUnknownName)
}
