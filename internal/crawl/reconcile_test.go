package crawl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/road-crawl-cli/internal/geo"
	"github.com/sells-group/road-crawl-cli/internal/model"
)

func business(placeID, name string, lat, lng float64) model.Business {
	return model.Business{PlaceID: placeID, Name: name, Location: geo.Point{Lat: lat, Lng: lng}}
}

func seed(t *testing.T, st *memStore, bs ...model.Business) {
	t.Helper()
	_, err := st.UpsertBusinesses(context.Background(), bs)
	require.NoError(t, err)
}

func TestReconcile_InsertsNew(t *testing.T) {
	st := newMemStore()
	r := NewReconciler(st, 0)

	out, err := r.Reconcile(context.Background(), business("places/p1", "Corner Deli", 40, -75))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, out)
	require.Len(t, st.businesses, 1)
	assert.Equal(t, "p1", st.businesses[0].PlaceID)
}

func TestReconcile_SamePlaceIDUpdates(t *testing.T) {
	st := newMemStore()
	phone := "215-555-0100"
	existing := business("p1", "Corner Deli", 40, -75)
	existing.Phone = &phone
	seed(t, st, existing)

	r := NewReconciler(st, 50)
	out, err := r.Reconcile(context.Background(), business("p1", "Corner Deli & Grocery", 40, -75))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)

	require.Len(t, st.businesses, 1)
	assert.Equal(t, "Corner Deli & Grocery", st.businesses[0].Name)
	require.NotNil(t, st.businesses[0].Phone, "missing contact fields do not erase stored ones")
	assert.Equal(t, phone, *st.businesses[0].Phone)
}

func TestReconcile_ProximityMatchKeepsStoredPlaceID(t *testing.T) {
	st := newMemStore()
	seed(t, st, business("old", "Joe's Pizza, LLC", 40, -75))

	r := NewReconciler(st, 50)
	// ~20m east.
	out, err := r.Reconcile(context.Background(), business("new", "JOES PIZZA", 40, -74.99977))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, out)

	require.Len(t, st.businesses, 1)
	assert.Equal(t, "old", st.businesses[0].PlaceID)
	assert.Equal(t, "JOES PIZZA", st.businesses[0].Name)
}

func TestReconcile_ProximityMatchAdoptsPlaceIDWhenMissing(t *testing.T) {
	st := newMemStore()
	seed(t, st, business("", "Joe's Pizza", 40, -75))

	r := NewReconciler(st, 50)
	out, err := r.Reconcile(context.Background(), business("places/new", "Joe's Pizza", 40, -74.99977))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, out)

	require.Len(t, st.businesses, 1)
	assert.Equal(t, "new", st.businesses[0].PlaceID)
}

func TestReconcile_NameMismatchInserts(t *testing.T) {
	st := newMemStore()
	seed(t, st, business("old", "Joe's Pizza", 40, -75))

	r := NewReconciler(st, 50)
	out, err := r.Reconcile(context.Background(), business("new", "Sal's Pizza", 40, -75))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, out)
	assert.Len(t, st.businesses, 2)
}

func TestReconcile_OutsideRadiusInserts(t *testing.T) {
	st := newMemStore()
	seed(t, st, business("old", "Joe's Pizza", 40, -75))

	r := NewReconciler(st, 50)
	// ~170m east.
	out, err := r.Reconcile(context.Background(), business("new", "Joe's Pizza", 40, -74.998))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, out)
}

func TestReconcile_BrandMismatchInserts(t *testing.T) {
	st := newMemStore()
	stored := business("old", "Express Mart", 40, -75)
	stored.Brand = model.StrPtr("Sunoco")
	seed(t, st, stored)

	incoming := business("new", "Express Mart", 40, -75)
	incoming.Brand = model.StrPtr("Shell")

	out, err := NewReconciler(st, 50).Reconcile(context.Background(), incoming)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, out)
}

func TestReconcile_AmbiguousInsertsNew(t *testing.T) {
	st := newMemStore()
	seed(t, st,
		business("a", "Dunkin", 40, -75),
		business("b", "Dunkin'", 40.0001, -75),
	)

	out, err := NewReconciler(st, 50).Reconcile(context.Background(), business("c", "DUNKIN", 40.00005, -75))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAmbiguous, out)
	assert.Len(t, st.businesses, 3)
}
