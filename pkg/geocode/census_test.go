package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const censusMatchBody = `{
	"result": {
		"addressMatches": [
			{
				"coordinates": {"x": -89.6440, "y": 39.7990},
				"matchedAddress": "100 N GRAND AVE W, SPRINGFIELD, IL, 62702"
			}
		]
	}
}`

const censusNoMatchBody = `{"result": {"addressMatches": []}}`

func testAddr() AddressInput {
	return AddressInput{
		Street: "100 N Grand Ave W",
		City:   "Springfield",
		State:  "IL",
	}
}

func TestGeocode_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Public_AR_Current", r.URL.Query().Get("benchmark"))
		assert.Contains(t, r.URL.Query().Get("address"), "Springfield")
		_, _ = w.Write([]byte(censusMatchBody))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	result, err := client.Geocode(context.Background(), testAddr())
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.InDelta(t, 39.7990, result.Latitude, 0.0001)
	assert.InDelta(t, -89.6440, result.Longitude, 0.0001)
	assert.Equal(t, "SPRINGFIELD", result.City)
	assert.Equal(t, "IL", result.State)
	assert.Equal(t, "62702", result.Zip)
	assert.Equal(t, "census", result.Source)
}

func TestGeocode_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(censusNoMatchBody))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	result, err := client.Geocode(context.Background(), testAddr())
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGeocode_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Geocode(context.Background(), testAddr())
	assert.Error(t, err)
}

func TestFormatOneLine_VenueFallback(t *testing.T) {
	line := formatOneLine(AddressInput{Venue: "Hara Arena", City: "Dayton", State: "OH"})
	assert.Equal(t, "Hara Arena, Dayton, OH", line)
}

func TestParseMatchedAddress(t *testing.T) {
	city, state, zip := parseMatchedAddress("123 MAIN ST, DAYTON, OH, 45402")
	assert.Equal(t, "DAYTON", city)
	assert.Equal(t, "OH", state)
	assert.Equal(t, "45402", zip)

	city, state, zip = parseMatchedAddress("garbage")
	assert.Empty(t, city)
	assert.Empty(t, state)
	assert.Empty(t, zip)
}

func TestSufficient(t *testing.T) {
	assert.True(t, AddressInput{Street: "1 Main St", City: "Dayton"}.Sufficient())
	assert.True(t, AddressInput{Venue: "Hara Arena", City: "Dayton"}.Sufficient())
	assert.False(t, AddressInput{City: "Dayton"}.Sufficient())
	assert.False(t, AddressInput{Street: "1 Main St"}.Sufficient())
}

func TestNoopClient(t *testing.T) {
	result, err := NoopClient{}.Geocode(context.Background(), testAddr())
	assert.NoError(t, err)
	assert.False(t, result.Matched)
}
