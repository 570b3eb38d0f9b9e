package crawl

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/metrics"
	"github.com/sells-group/road-crawl-cli/internal/model"
)

// DefaultMatchRadius is how far apart two records of the same business may
// be and still reconcile.
const DefaultMatchRadius = 50.0

// Outcome is how a crawled business was merged into the store.
type Outcome string

// Reconciliation outcomes.
const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeMatched   Outcome = "matched"
	OutcomeAmbiguous Outcome = "ambiguous"
)

// BusinessStore is the persistence the reconciler needs.
type BusinessStore interface {
	GetBusinessByPlaceID(ctx context.Context, placeID string) (*model.Business, error)
	FindBusinessesNear(ctx context.Context, pt geo.Point, radiusMeters float64) ([]model.Business, error)
	UpsertBusinesses(ctx context.Context, businesses []model.Business) (int, error)
	UpdateBusiness(ctx context.Context, b *model.Business) error
}

// Reconciler merges crawled businesses with stored ones: by place id first,
// then by a unique nearby record with the same normalized name.
type Reconciler struct {
	store  BusinessStore
	radius float64
}

// NewReconciler creates a reconciler. A non-positive radius uses
// DefaultMatchRadius.
func NewReconciler(store BusinessStore, radiusMeters float64) *Reconciler {
	if radiusMeters <= 0 {
		radiusMeters = DefaultMatchRadius
	}
	return &Reconciler{store: store, radius: radiusMeters}
}

// Reconcile persists b and reports which path it took.
func (r *Reconciler) Reconcile(ctx context.Context, b model.Business) (Outcome, error) {
	b.PlaceID = model.NormalizePlaceID(b.PlaceID)

	existing, err := r.store.GetBusinessByPlaceID(ctx, b.PlaceID)
	if err != nil {
		return "", eris.Wrapf(err, "crawl: lookup place %s", b.PlaceID)
	}
	if existing != nil {
		if _, err := r.store.UpsertBusinesses(ctx, []model.Business{b}); err != nil {
			return "", eris.Wrapf(err, "crawl: update place %s", b.PlaceID)
		}
		return r.record(OutcomeUpdated), nil
	}

	near, err := r.store.FindBusinessesNear(ctx, b.Location, r.radius)
	if err != nil {
		return "", eris.Wrapf(err, "crawl: find businesses near %s", b.PlaceID)
	}
	matches := sameBusiness(b, near)

	switch len(matches) {
	case 1:
		m := matches[0]
		// The stored record keeps its own place id unless it has none.
		b.ID = m.ID
		if m.PlaceID != "" {
			b.PlaceID = m.PlaceID
		}
		if err := r.store.UpdateBusiness(ctx, &b); err != nil {
			return "", eris.Wrapf(err, "crawl: merge place %s into business %d", b.PlaceID, m.ID)
		}
		return r.record(OutcomeMatched), nil
	case 0:
		if _, err := r.store.UpsertBusinesses(ctx, []model.Business{b}); err != nil {
			return "", eris.Wrapf(err, "crawl: insert place %s", b.PlaceID)
		}
		return r.record(OutcomeInserted), nil
	default:
		ids := make([]int64, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		zap.L().Warn("crawl: ambiguous reconciliation, inserting as new",
			zap.String("place_id", b.PlaceID),
			zap.String("name", b.Name),
			zap.Int64s("candidate_ids", ids),
		)
		if _, err := r.store.UpsertBusinesses(ctx, []model.Business{b}); err != nil {
			return "", eris.Wrapf(err, "crawl: insert place %s", b.PlaceID)
		}
		return r.record(OutcomeAmbiguous), nil
	}
}

func (r *Reconciler) record(o Outcome) Outcome {
	metrics.BusinessesReconciled.WithLabelValues(string(o)).Inc()
	return o
}

// sameBusiness filters candidates to those whose name matches b and whose
// brand agrees when both sides carry one.
func sameBusiness(b model.Business, candidates []model.Business) []model.Business {
	var out []model.Business
	for _, c := range candidates {
		if !NamesMatch(b.Name, c.Name) {
			continue
		}
		if b.Brand != nil && c.Brand != nil && !NamesMatch(*b.Brand, *c.Brand) {
			continue
		}
		out = append(out, c)
	}
	return out
}
