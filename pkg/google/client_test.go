package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchText_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, TierStandard.FieldMask(), r.Header.Get("X-Goog-FieldMask"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "restaurant on Main St, Springfield, IL", body["textQuery"])
		assert.EqualValues(t, 20, body["pageSize"])
		assert.Equal(t, "en", body["languageCode"])
		assert.NotContains(t, body, "Tier")
		circle := body["locationBias"].(map[string]any)["circle"].(map[string]any)
		assert.EqualValues(t, 200, circle["radius"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"places": [{
				"id": "ChIJ1",
				"displayName": {"text": "Joe's Diner"},
				"location": {"latitude": 39.8, "longitude": -89.6},
				"rating": 4.5,
				"userRatingCount": 127,
				"priceLevel": "PRICE_LEVEL_MODERATE"
			}],
			"nextPageToken": "tok-2"
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.SearchText(context.Background(), SearchTextRequest{
		TextQuery: "restaurant on Main St, Springfield, IL",
		Tier:      TierStandard,
		LocationBias: &LocationBias{Circle: &Circle{
			Center: LatLng{Latitude: 39.8, Longitude: -89.6},
			Radius: 200,
		}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	p := resp.Places[0]
	assert.Equal(t, "Joe's Diner", p.DisplayName.Text)
	require.NotNil(t, p.Rating)
	assert.InDelta(t, 4.5, *p.Rating, 0.001)
	assert.Equal(t, 127, p.UserRatingCount)
	assert.Equal(t, "tok-2", resp.NextPageToken)
	require.NotNil(t, p.PriceTier())
	assert.Equal(t, 2, *p.PriceTier())
}

func TestSearchText_PageToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body SearchTextRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok-2", body.PageToken)
		_, _ = w.Write([]byte(`{"places": []}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.SearchText(context.Background(), SearchTextRequest{TextQuery: "x", PageToken: "tok-2"})
	require.NoError(t, err)
	assert.Empty(t, resp.Places)
	assert.Empty(t, resp.NextPageToken)
}

func TestSearchText_EmptyQuery(t *testing.T) {
	client := NewClient("k")
	_, err := client.SearchText(context.Background(), SearchTextRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty text query")
}

func TestSearchText_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "quota"}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.SearchText(context.Background(), SearchTextRequest{TextQuery: "x"})
	assert.Nil(t, resp)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, 7*time.Second, se.RetryAfter)
	assert.Contains(t, err.Error(), "429")
}

func TestSearchText_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.SearchText(context.Background(), SearchTextRequest{TextQuery: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestSearchText_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("k", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := client.SearchText(ctx, SearchTextRequest{TextQuery: "x"})
	assert.Error(t, err)
}

func TestTier_FieldMask(t *testing.T) {
	for _, tier := range []Tier{TierBasic, TierMinimal, TierStandard, TierComprehensive} {
		mask := tier.FieldMask()
		assert.True(t, strings.HasPrefix(mask, "places.id,"), tier)
		assert.True(t, strings.HasSuffix(mask, ",nextPageToken"), tier)
		assert.True(t, tier.Valid())
	}

	assert.NotContains(t, TierBasic.FieldMask(), "Phone")
	assert.Contains(t, TierMinimal.FieldMask(), "places.nationalPhoneNumber")
	assert.NotContains(t, TierMinimal.FieldMask(), "places.rating")
	assert.Contains(t, TierStandard.FieldMask(), "places.rating")
	assert.NotContains(t, TierStandard.FieldMask(), "places.websiteUri")
	assert.Contains(t, TierComprehensive.FieldMask(), "places.websiteUri")
	assert.Contains(t, TierComprehensive.FieldMask(), "places.regularOpeningHours")

	assert.False(t, Tier("gold").Valid())
	assert.Equal(t, TierComprehensive.FieldMask(), Tier("gold").FieldMask())
}

func TestPlace_Helpers(t *testing.T) {
	p := Place{InternationalPhoneNumber: "+1 555-0100"}
	assert.Equal(t, "+1 555-0100", p.Phone())
	p.NationalPhoneNumber = "(555) 0100"
	assert.Equal(t, "(555) 0100", p.Phone())

	assert.Nil(t, p.PriceTier())
	p.PriceRange = &PriceRange{StartPrice: &Money{Text: "$$$"}}
	assert.Equal(t, 3, *p.PriceTier())
	p.PriceRange.StartPrice.Text = "$$$$$$"
	assert.Equal(t, 4, *p.PriceTier())
	p.PriceLevel = "PRICE_LEVEL_FREE"
	assert.Equal(t, 0, *p.PriceTier())

	assert.Nil(t, p.Hours())
	open := true
	p.RegularOpeningHours = &OpeningHours{WeekdayDescriptions: []string{"Mon: 9-5"}}
	assert.Equal(t, p.RegularOpeningHours, p.Hours())
	p.CurrentOpeningHours = &OpeningHours{OpenNow: &open}
	assert.Equal(t, p.CurrentOpeningHours, p.Hours())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Zero(t, parseRetryAfter("-1"))
}
