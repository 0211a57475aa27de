package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landmarkvector/internal/errs"
	"landmarkvector/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: 0, MaxDelay: 0, JitterPct: 0}
}

func TestGetLandmarkNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testPolicy())
	_, err := c.GetLandmark(context.Background(), "LP-99999")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestGetLandmarkNormalizesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(lpcReportItem{LPNumber: "lp-00001", Name: "Wyckoff House"})
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testPolicy())
	lm, err := c.GetLandmark(context.Background(), "lp-00001")
	require.NoError(t, err)
	assert.Equal(t, "/api/LpcReport/LP-00001", gotPath)
	assert.Equal(t, "LP-00001", lm.ID)
	assert.Equal(t, "Wyckoff House", lm.Name)
}

func TestGetLandmarkInvalidID(t *testing.T) {
	c := New("http://example.invalid", http.DefaultClient, testPolicy())
	_, err := c.GetLandmark(context.Background(), "not-a-landmark")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestGetWikipediaRefsFiltersRecordType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]webContentItem{
			{LPNumber: "LP-00001", URL: "https://en.wikipedia.org/wiki/Wyckoff_House", Title: "Wyckoff House", RecordType: "Wikipedia"},
			{LPNumber: "LP-00001", URL: "https://example.com/photo", Title: "Photo", RecordType: "Photo"},
			{LPNumber: "LP-00001", URL: "https://en.wikipedia.org/wiki/X", Title: "X", RecordType: "WIKIPEDIA"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testPolicy())
	refs, err := c.GetWikipediaRefs(context.Background(), "LP-00001")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "Wyckoff House", refs[0].Title)
}

func TestGetPlutoNotFoundIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testPolicy())
	rec, err := c.GetPluto(context.Background(), "LP-00001")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetBuildingsFallsBackToLandmarkDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/LpcReport/landmark/50/1":
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/api/LpcReport/LP-00001":
			_ = json.NewEncoder(w).Encode(lpcReportItem{
				LPNumber: "LP-00001",
				Landmarks: []buildingWire{
					{Address: "5816 Clarendon Rd", Name: "Wyckoff House"},
					{}, // malformed, should be skipped
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testPolicy())
	buildings, err := c.GetBuildings(context.Background(), "LP-00001", 50)
	require.NoError(t, err)
	require.Len(t, buildings, 1)
	assert.Equal(t, "5816 Clarendon Rd", buildings[0].Address)
}

func TestTotalCountNeverNegative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(listResponse{Total: 0, Results: nil})
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client(), testPolicy())
	total, err := c.TotalCount(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 0)
}
