// Package catalog implements the Landmark Catalog Client: a paginated
// read-through adapter over the external NYC landmark-designation REST
// registry (spec.md §4.1, §6). It normalizes landmark IDs, classifies HTTP
// failures into the shared errs taxonomy, and retries transient failures
// under the standard backoff policy.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"landmarkvector/internal/domain"
	"landmarkvector/internal/errs"
	"landmarkvector/internal/observability"
	"landmarkvector/internal/retry"
	"landmarkvector/internal/validation"
)

const module = "catalog"

// Client is the Landmark Catalog Client.
type Client struct {
	baseURL string
	http    *http.Client
	retry   retry.Policy
}

// New constructs a Client. httpClient should be a process-wide pooled client
// (see observability.NewHTTPClient); it is never mutated after construction.
func New(baseURL string, httpClient *http.Client, policy retry.Policy) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, retry: policy}
}

// --- wire shapes -----------------------------------------------------------

type lpcReportItem struct {
	LPNumber        string   `json:"lpNumber"`
	Name            string   `json:"name"`
	Borough         string   `json:"borough"`
	Neighborhood    string   `json:"neighborhood"`
	ObjectType      string   `json:"objectType"`
	Architect       string   `json:"architect"`
	Style           string   `json:"style"`
	DesignationDate string   `json:"designationDate"`
	Lat             *float64 `json:"lat"`
	Lon             *float64 `json:"lon"`
	PDFReportURL    string   `json:"pdfReportUrl"`
	PhotoStatus     bool     `json:"photoStatus"`
	Landmarks       []buildingWire `json:"landmarks"` // fallback building source
}

type listResponse struct {
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	Results []lpcReportItem `json:"results"`
}

type buildingWire struct {
	BBL     string   `json:"bbl"`
	BIN     string   `json:"bin"`
	Block   string   `json:"block"`
	Lot     string   `json:"lot"`
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

type buildingsResponse struct {
	Results []buildingWire `json:"results"`
}

type plutoWire struct {
	YearBuilt        string `json:"yearBuilt"`
	LandUse          string `json:"landUse"`
	HistoricDistrict string `json:"historicDistrict"`
	Zoning           string `json:"zoning"`
	LotArea          string `json:"lotArea"`
}

type webContentItem struct {
	LPNumber   string `json:"lpNumber"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	RecordType string `json:"recordType"`
}

func toLandmark(it lpcReportItem) domain.Landmark {
	id := strings.ToUpper(strings.TrimSpace(it.LPNumber))
	return domain.Landmark{
		ID:              id,
		Name:            it.Name,
		Borough:         it.Borough,
		Neighborhood:    it.Neighborhood,
		ObjectType:      it.ObjectType,
		Architect:       it.Architect,
		Style:           it.Style,
		DesignationDate: it.DesignationDate,
		Lat:             it.Lat,
		Lon:             it.Lon,
		PDFReportURL:    it.PDFReportURL,
		HasPhoto:        it.PhotoStatus,
	}
}

func toBuilding(w buildingWire) domain.Building {
	return domain.Building{
		BBL: w.BBL, BIN: w.BIN, Block: w.Block, Lot: w.Lot,
		Address: w.Address, Name: w.Name, Lat: w.Lat, Lon: w.Lon,
	}
}

// --- HTTP plumbing ----------------------------------------------------------

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	_, err := retry.DoValue(ctx, c.retry, module+".get", func(ctx context.Context) (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return struct{}{}, errs.Internal(module, err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, errs.Transient(module, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return struct{}{}, errs.NotFound(module, fmt.Errorf("%s: not found", path))
		}
		if resp.StatusCode/100 != 2 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			kind := errs.HTTPStatusKind(resp.StatusCode)
			return struct{}{}, errs.New(kind, module, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, string(body)))
		}
		if out == nil {
			return struct{}{}, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, errs.Internal(module, fmt.Errorf("decode %s: %w", path, err))
		}
		return struct{}{}, nil
	})
	return err
}

// --- operations --------------------------------------------------------------

// ListLandmarks returns a deterministic page of results for (pageSize, page)
// within a run, plus the provider-reported total.
func (c *Client) ListLandmarks(ctx context.Context, pageSize, page int) ([]domain.Landmark, int, error) {
	var resp listResponse
	path := fmt.Sprintf("/api/LpcReport/%d/%d", pageSize, page)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	out := make([]domain.Landmark, 0, len(resp.Results))
	for _, it := range resp.Results {
		out = append(out, toLandmark(it))
	}
	return out, resp.Total, nil
}

// TotalCount returns the provider's reported total landmark count. If the
// provider never reports a total (only ever observed via ListLandmarks), it
// pages through ListLandmarks with a page size of 50 until an empty page is
// returned, counting the results.
// Never returns a negative number.
func (c *Client) TotalCount(ctx context.Context) (int, error) {
	_, total, err := c.ListLandmarks(ctx, 1, 1)
	if err != nil {
		return 0, err
	}
	if total > 0 {
		return total, nil
	}
	// Fall back to probing.
	count := 0
	for page := 1; ; page++ {
		results, _, err := c.ListLandmarks(ctx, 50, page)
		if err != nil {
			return 0, err
		}
		if len(results) == 0 {
			break
		}
		count += len(results)
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}

// GetLandmark fetches the detail record for a single landmark ID.
func (c *Client) GetLandmark(ctx context.Context, id string) (domain.Landmark, error) {
	norm, err := validation.LandmarkID(id)
	if err != nil {
		return domain.Landmark{}, errs.Validation(module, err)
	}
	var item lpcReportItem
	path := "/api/LpcReport/" + norm
	if err := c.getJSON(ctx, path, &item); err != nil {
		return domain.Landmark{}, err
	}
	return toLandmark(item), nil
}

// GetBuildings returns up to limit buildings for the landmark. It consults
// the dedicated buildings endpoint first; if that endpoint 404s, it falls
// back to the `landmarks[]` field on the landmark-detail response.
// Malformed entries are skipped with a WARN log rather than aborting the
// whole call.
func (c *Client) GetBuildings(ctx context.Context, id string, limit int) ([]domain.Building, error) {
	norm, err := validation.LandmarkID(id)
	if err != nil {
		return nil, errs.Validation(module, err)
	}
	if limit <= 0 {
		limit = 50
	}

	var resp buildingsResponse
	path := fmt.Sprintf("/api/LpcReport/landmark/%d/1?LpcNumber=%s", limit, norm)
	err = c.getJSON(ctx, path, &resp)
	switch {
	case err == nil:
		return buildingsFromWire(ctx, resp.Results, limit), nil
	case errs.Is(err, errs.KindNotFound):
		// fall back to landmark-detail landmarks[]
		item, derr := c.getLandmarkWire(ctx, norm)
		if derr != nil {
			return nil, derr
		}
		return buildingsFromWire(ctx, item.Landmarks, limit), nil
	default:
		return nil, err
	}
}

func (c *Client) getLandmarkWire(ctx context.Context, norm string) (lpcReportItem, error) {
	var item lpcReportItem
	if err := c.getJSON(ctx, "/api/LpcReport/"+norm, &item); err != nil {
		return lpcReportItem{}, err
	}
	return item, nil
}

func buildingsFromWire(ctx context.Context, wire []buildingWire, limit int) []domain.Building {
	out := make([]domain.Building, 0, len(wire))
	for _, w := range wire {
		if w.Address == "" && w.BBL == "" && w.Name == "" {
			observability.Warn(ctx, module, "get_buildings").Msg("skipping malformed building entry")
			continue
		}
		out = append(out, toBuilding(w))
		if len(out) >= limit {
			break
		}
	}
	return out
}

// GetPluto fetches the optional PLUTO record for a landmark. A 404 yields
// (nil, nil), not an error.
func (c *Client) GetPluto(ctx context.Context, id string) (*domain.PlutoRecord, error) {
	norm, err := validation.LandmarkID(id)
	if err != nil {
		return nil, errs.Validation(module, err)
	}
	var wire plutoWire
	if err := c.getJSON(ctx, "/api/Pluto/"+norm, &wire); err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.PlutoRecord{
		YearBuilt:        wire.YearBuilt,
		LandUse:          wire.LandUse,
		HistoricDistrict: wire.HistoricDistrict,
		Zoning:           wire.Zoning,
		LotArea:          wire.LotArea,
	}, nil
}

// GetWikipediaRefs returns the Wikipedia article references for a landmark,
// filtering to entries whose record_type equals "wikipedia" case
// insensitively.
func (c *Client) GetWikipediaRefs(ctx context.Context, id string) ([]domain.WikipediaArticleRef, error) {
	norm, err := validation.LandmarkID(id)
	if err != nil {
		return nil, errs.Validation(module, err)
	}
	var items []webContentItem
	if err := c.getJSON(ctx, "/api/WebContent/"+norm, &items); err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]domain.WikipediaArticleRef, 0, len(items))
	for _, it := range items {
		if !strings.EqualFold(it.RecordType, "wikipedia") {
			continue
		}
		out = append(out, domain.WikipediaArticleRef{
			LandmarkID: norm,
			URL:        it.URL,
			Title:      it.Title,
			RecordType: it.RecordType,
		})
	}
	return out, nil
}
