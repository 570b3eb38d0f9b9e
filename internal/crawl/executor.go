// Package crawl executes crawl plans against the Google Places API: paging,
// rate limiting, retries, reconciliation, and crawl session bookkeeping.
package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/config"
	"github.com/sells-group/road-crawl-cli/internal/metrics"
	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/resilience"
	"github.com/sells-group/road-crawl-cli/internal/store"
	"github.com/sells-group/road-crawl-cli/internal/strategy"
	"github.com/sells-group/road-crawl-cli/pkg/google"
)

const (
	apiTypePlaces      = "google_places"
	endpointSearchText = "places:searchText"
)

// Execution defaults.
const (
	DefaultMaxPages    = 3
	DefaultPageDelay   = 2 * time.Second
	DefaultMaxAttempts = 3
)

// Store is the persistence the executor needs.
type Store interface {
	BusinessStore
	CreateSession(ctx context.Context, s *model.CrawlSession) error
	UpdateSession(ctx context.Context, s *model.CrawlSession) error
	RecordAPICall(ctx context.Context, call store.APICall) error
}

// Result summarizes one executed plan.
type Result struct {
	SessionID string        `json:"session_id"`
	Mode      strategy.Mode `json:"mode"`
	Tier      google.Tier   `json:"tier"`
	Searches  int           `json:"searches"`
	Pages     int           `json:"pages"`
	Places    int           `json:"places"`
	Skipped   int           `json:"skipped"`
	Inserted  int           `json:"inserted"`
	Updated   int           `json:"updated"`
	Matched   int           `json:"matched"`
	Ambiguous int           `json:"ambiguous"`
}

// Saved is the number of businesses written.
func (r *Result) Saved() int {
	return r.Inserted + r.Updated + r.Matched + r.Ambiguous
}

func (r *Result) add(o Outcome) {
	switch o {
	case OutcomeInserted:
		r.Inserted++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeMatched:
		r.Matched++
	case OutcomeAmbiguous:
		r.Ambiguous++
	}
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper replaces the inter-page and retry wait.
func WithSleeper(s resilience.SleepFunc) Option {
	return func(e *Executor) { e.sleep = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithBreaker replaces the circuit breaker guarding the Places client.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(e *Executor) { e.breaker = cb }
}

// Executor runs crawl plans. It is safe for concurrent use when its store
// and client are.
type Executor struct {
	client     google.Client
	store      Store
	budget     *Budget
	breaker    *resilience.CircuitBreaker
	reconciler *Reconciler
	cfg        config.CrawlConfig
	sleep      resilience.SleepFunc
	now        func() time.Time
}

// NewExecutor creates an executor. Zero paging and retry settings take the
// package defaults.
func NewExecutor(client google.Client, st Store, budget *Budget, cfg config.CrawlConfig, opts ...Option) *Executor {
	if cfg.MaxPages <= 0 || cfg.MaxPages > DefaultMaxPages {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.PageSize <= 0 || cfg.PageSize > google.MaxPageSize {
		cfg.PageSize = google.MaxPageSize
	}
	if cfg.PageDelayMillis <= 0 {
		cfg.PageDelayMillis = int(DefaultPageDelay / time.Millisecond)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if budget == nil {
		budget = NewBudget(config.RateLimitConfig{}, nil)
	}

	e := &Executor{
		client:     client,
		store:      st,
		budget:     budget,
		reconciler: NewReconciler(st, cfg.MatchRadius),
		cfg:        cfg,
		sleep:      resilience.TimerSleep,
		now:        time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.breaker == nil {
		e.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerThreshold,
			ResetTimeout:     time.Duration(cfg.BreakerResetSecs) * time.Second,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("crawl: places circuit breaker state change",
					zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
	}
	return e
}

// Start creates a session for road and keyword and moves it to processing.
// store.ErrSessionActive is returned when the pair is already being crawled.
func (e *Executor) Start(ctx context.Context, road *model.RoadSegment, keyword string) (*model.CrawlSession, error) {
	cs := &model.CrawlSession{
		ID:        uuid.New().String(),
		RoadID:    road.ID,
		Region:    road.Region,
		Keyword:   keyword,
		Status:    model.SessionPending,
		CreatedAt: e.now().UTC(),
	}
	if err := e.store.CreateSession(ctx, cs); err != nil {
		return nil, err
	}
	if err := cs.Transition(model.SessionProcessing, e.now().UTC()); err != nil {
		return nil, err
	}
	if err := e.store.UpdateSession(ctx, cs); err != nil {
		return nil, eris.Wrapf(err, "crawl: start session %s", cs.ID)
	}
	return cs, nil
}

// Complete marks the session completed with the number of businesses found.
func (e *Executor) Complete(ctx context.Context, cs *model.CrawlSession, found int) error {
	if err := cs.Transition(model.SessionCompleted, e.now().UTC()); err != nil {
		return err
	}
	cs.BusinessesFound = found
	return eris.Wrapf(e.store.UpdateSession(ctx, cs), "crawl: complete session %s", cs.ID)
}

// Fail marks the session failed, storing the cause's message verbatim.
func (e *Executor) Fail(ctx context.Context, cs *model.CrawlSession, cause error) error {
	if err := cs.Transition(model.SessionFailed, e.now().UTC()); err != nil {
		return err
	}
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	cs.Error = &msg
	return eris.Wrapf(e.store.UpdateSession(ctx, cs), "crawl: fail session %s", cs.ID)
}

// Execute runs plan for road under a new session and closes the session
// with the outcome.
func (e *Executor) Execute(ctx context.Context, road *model.RoadSegment, plan strategy.Plan, keyword string) (*Result, error) {
	log := zap.L().With(zap.String("component", "crawl.executor"), zap.Int64("road_id", road.ID))

	cs, err := e.Start(ctx, road, keyword)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("session_id", cs.ID))
	mode := string(plan.Head().Mode)

	res, runErr := e.Run(ctx, cs, road, plan, keyword)
	if runErr != nil {
		if res != nil {
			cs.BusinessesFound = res.Saved()
		}
		if err := e.Fail(context.WithoutCancel(ctx), cs, runErr); err != nil {
			log.Error("crawl: record session failure", zap.Error(err))
		}
		metrics.RecordSession(mode, string(model.SessionFailed))
		log.Warn("crawl: session failed", zap.Int("saved", cs.BusinessesFound), zap.Error(runErr))
		return res, runErr
	}

	if err := e.Complete(ctx, cs, res.Saved()); err != nil {
		return res, err
	}
	metrics.RecordSession(mode, string(model.SessionCompleted))
	log.Info("crawl: session completed",
		zap.String("mode", mode),
		zap.Int("searches", res.Searches),
		zap.Int("pages", res.Pages),
		zap.Int("saved", res.Saved()),
	)
	return res, nil
}

// Run issues every search in plan, then reconciles the unique places found.
// When a search fails, the places already fetched are still reconciled
// before the search error is returned with the partial Result.
func (e *Executor) Run(ctx context.Context, cs *model.CrawlSession, road *model.RoadSegment, plan strategy.Plan, keyword string) (*Result, error) {
	head := plan.Head()
	res := &Result{SessionID: cs.ID, Mode: head.Mode, Tier: head.Tier}

	seen := make(map[string]int)
	var (
		found     []model.Business
		searchErr error
	)
	for _, s := range plan.Searches() {
		places, pages, err := e.search(ctx, cs, QueryFor(road, keyword, s), s, head.Tier)
		res.Searches++
		res.Pages += pages
		res.Places += len(places)

		for _, p := range places {
			b, ok := ToBusiness(p, e.now().UTC())
			if !ok {
				res.Skipped++
				continue
			}
			b.SessionID = cs.ID
			roadID := road.ID
			b.NearestRoadID = &roadID
			attachTarget(&b, s)
			if err := model.Validate(&b); err != nil {
				zap.L().Debug("crawl: skipping invalid place", zap.String("place_id", b.PlaceID), zap.Error(err))
				res.Skipped++
				continue
			}
			if i, dup := seen[b.PlaceID]; dup {
				if b.OSMID != nil && found[i].OSMID == nil {
					found[i] = b
				}
				continue
			}
			seen[b.PlaceID] = len(found)
			found = append(found, b)
		}
		if err != nil {
			searchErr = err
			break
		}
	}

	if searchErr == nil {
		return res, e.reconcileAll(ctx, res, found)
	}

	// Paid-for places survive a cancelled or exhausted crawl.
	if err := e.reconcileAll(context.WithoutCancel(ctx), res, found); err != nil {
		zap.L().Error("crawl: reconcile partial results",
			zap.String("session_id", cs.ID), zap.Int("places", len(found)), zap.Error(err))
	}
	return res, searchErr
}

func (e *Executor) reconcileAll(ctx context.Context, res *Result, found []model.Business) error {
	for _, b := range found {
		outcome, err := e.reconciler.Reconcile(ctx, b)
		if err != nil {
			return err
		}
		res.add(outcome)
	}
	return nil
}

// search pages through one text query.
func (e *Executor) search(ctx context.Context, cs *model.CrawlSession, query string, s strategy.Search, tier google.Tier) ([]google.Place, int, error) {
	req := google.SearchTextRequest{
		TextQuery: query,
		PageSize:  e.cfg.PageSize,
		Tier:      tier,
	}
	if s.Location.Valid() && s.RadiusMeters > 0 {
		req.LocationBias = &google.LocationBias{Circle: &google.Circle{
			Center: google.LatLng{Latitude: s.Location.Lat, Longitude: s.Location.Lng},
			Radius: s.RadiusMeters,
		}}
	}

	var places []google.Place
	pages := 0
	for page := 0; page < e.cfg.MaxPages; page++ {
		if page > 0 {
			// Next-page tokens are not valid until a short delay has passed.
			if err := e.sleep(ctx, time.Duration(e.cfg.PageDelayMillis)*time.Millisecond); err != nil {
				return places, pages, eris.Wrap(err, "crawl: page delay")
			}
		}
		resp, err := e.fetch(ctx, cs, req)
		if err != nil {
			return places, pages, err
		}
		pages++
		places = append(places, resp.Places...)
		if resp.NextPageToken == "" {
			break
		}
		req.PageToken = resp.NextPageToken
	}
	return places, pages, nil
}

// fetch sends one page request under the budget, retrying transient
// failures through the circuit breaker.
func (e *Executor) fetch(ctx context.Context, cs *model.CrawlSession, req google.SearchTextRequest) (*google.SearchTextResponse, error) {
	retry := resilience.RetryConfig{
		MaxAttempts: e.cfg.MaxAttempts,
		Sleep:       e.sleep,
		OnRetry:     resilience.RetryLogger("google_places", "searchText"),
	}
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*google.SearchTextResponse, error) {
		if err := e.budget.Acquire(ctx); err != nil {
			return nil, err
		}
		start := e.now()
		resp, err := resilience.ExecuteVal(ctx, e.breaker, func(ctx context.Context) (*google.SearchTextResponse, error) {
			resp, err := e.client.SearchText(ctx, req)
			return resp, classifyPlacesError(err)
		})
		e.logCall(ctx, cs, req, resp, err, e.now().Sub(start))
		return resp, err
	})
}

func (e *Executor) logCall(ctx context.Context, cs *model.CrawlSession, req google.SearchTextRequest, resp *google.SearchTextResponse, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = resilience.Classify(err)
	}
	metrics.RecordPlacesRequest(string(req.Tier), status, d)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return
	}

	results := 0
	if resp != nil {
		results = len(resp.Places)
	}
	call := store.APICall{
		APIType:       apiTypePlaces,
		Endpoint:      endpointSearchText,
		Tier:          string(req.Tier),
		RequestCount:  1,
		ResponseCount: results,
		Keyword:       req.TextQuery,
		SessionID:     cs.ID,
		CreatedAt:     e.now().UTC(),
	}
	if err := e.store.RecordAPICall(context.WithoutCancel(ctx), call); err != nil {
		zap.L().Warn("crawl: record api call", zap.Error(err))
	}
}

// classifyPlacesError marks retryable HTTP statuses as transient.
func classifyPlacesError(err error) error {
	var se *google.StatusError
	if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
		return &resilience.TransientError{Err: se, StatusCode: se.StatusCode, RetryAfter: se.RetryAfter}
	}
	return err
}
