// Package metadata implements the Enhanced Metadata Collector (spec.md
// §4.5): gathers per-landmark core attributes, flattened buildings, PLUTO
// record, and photo status into a FlatMetadata ready to merge into every
// chunk produced for that landmark, cached per-landmark for the run's
// lifetime.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"landmarkvector/internal/cache"
	"landmarkvector/internal/catalog"
	"landmarkvector/internal/domain"
)

const (
	module         = "metadata"
	defaultTTL     = 24 * time.Hour
	maxBuildings   = 50
)

// Collector gathers and caches per-landmark metadata.
type Collector struct {
	catalog      *catalog.Client
	cache        cache.Cache
	ttl          time.Duration
	maxBuildings int
}

// New constructs a Collector backed by the given catalog client and cache.
func New(catalogClient *catalog.Client, c cache.Cache, ttl time.Duration) *Collector {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Collector{catalog: catalogClient, cache: c, ttl: ttl, maxBuildings: maxBuildings}
}

// cached is the JSON-serializable shape stored in the cache backend.
type cached struct {
	Fields map[string]any `json:"fields"`
}

// Collect returns the flattened metadata for landmarkID, consulting the
// per-landmark cache first so the same landmark referenced by multiple
// Wikipedia articles within a run is only fetched once.
func (c *Collector) Collect(ctx context.Context, landmarkID string) (domain.FlatMetadata, error) {
	key := "landmark_metadata:" + landmarkID
	if c.cache != nil {
		if raw, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			var cd cached
			if err := json.Unmarshal(raw, &cd); err == nil {
				return domain.FlatMetadata(cd.Fields), nil
			}
		}
	}

	fm, err := c.collectUncached(ctx, landmarkID)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(cached{Fields: map[string]any(fm)}); err == nil {
			_ = c.cache.Set(ctx, key, raw, c.ttl)
		}
	}
	return fm, nil
}

func (c *Collector) collectUncached(ctx context.Context, landmarkID string) (domain.FlatMetadata, error) {
	landmark, err := c.catalog.GetLandmark(ctx, landmarkID)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch landmark: %w", module, err)
	}

	fm := domain.NewFlatMetadata()
	fm.SetString("name", landmark.Name)
	fm.SetString("borough", landmark.Borough)
	fm.SetString("neighborhood", landmark.Neighborhood)
	fm.SetString("object_type", landmark.ObjectType)
	fm.SetString("architect", landmark.Architect)
	fm.SetString("style", landmark.Style)
	fm.SetString("designation_date", landmark.DesignationDate)
	fm.SetBool("has_photo", landmark.HasPhoto)
	fm.SetString("landmark_id", landmark.ID)

	buildings, err := c.catalog.GetBuildings(ctx, landmarkID, c.maxBuildings)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch buildings: %w", module, err)
	}
	names := make([]string, 0, len(buildings))
	for i, b := range buildings {
		prefix := fmt.Sprintf("building_%d_", i)
		fm.SetString(prefix+"bbl", b.BBL)
		fm.SetString(prefix+"bin", b.BIN)
		fm.SetString(prefix+"block", b.Block)
		fm.SetString(prefix+"lot", b.Lot)
		fm.SetString(prefix+"address", b.Address)
		fm.SetString(prefix+"name", b.Name)
		if b.Name != "" {
			names = append(names, b.Name)
		}
	}
	fm.SetStringList("building_names", names)

	pluto, err := c.catalog.GetPluto(ctx, landmarkID)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch pluto: %w", module, err)
	}
	if pluto != nil {
		fm.SetString("pluto_year_built", pluto.YearBuilt)
		fm.SetString("pluto_land_use", pluto.LandUse)
		fm.SetString("pluto_historic_district", pluto.HistoricDistrict)
		fm.SetString("pluto_zoning", pluto.Zoning)
		fm.SetString("pluto_lot_area", pluto.LotArea)
	}

	return fm, nil
}
