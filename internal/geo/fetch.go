package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Options configures a boundary Service.
type Options struct {
	// URL of the remote GeoJSON boundary document.
	URL string
	// NameProperty is the feature property holding the region name
	// (ST_NM for the India states document).
	NameProperty string
	// ShapefilePath, when set, is tried before the remote fetch.
	ShapefilePath string
	// Aliases maps dataset region spellings to boundary names.
	Aliases map[string]string

	Timeout    time.Duration
	RatePerSec float64
	HTTPClient *http.Client
}

// Service loads boundary geometry once and caches it for the process
// lifetime. A failed load is not cached: the next caller retries, and in
// the meantime map views simply render without boundaries.
type Service struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter

	group singleflight.Group
	mu    sync.RWMutex
	fs    *FeatureSet
}

// NewService builds a Service from Options, filling defaults.
func NewService(opts Options) *Service {
	if opts.NameProperty == "" {
		opts.NameProperty = "ST_NM"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSec == 0 {
		opts.RatePerSec = 1
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Service{
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
	}
}

// Boundaries returns the cached FeatureSet, loading it on first use.
// Load order: local shapefile when configured, then the remote document.
func (s *Service) Boundaries(ctx context.Context) (*FeatureSet, error) {
	s.mu.RLock()
	fs := s.fs
	s.mu.RUnlock()
	if fs != nil {
		return fs, nil
	}

	v, err, _ := s.group.Do("boundaries", func() (any, error) {
		loaded, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.fs = loaded
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*FeatureSet), nil
}

// Resolve maps a dataset region name to its boundary feature name via the
// alias table, falling back to the name itself.
func (s *Service) Resolve(name string) string {
	if alias, ok := s.opts.Aliases[name]; ok {
		return alias
	}
	return name
}

func (s *Service) load(ctx context.Context) (*FeatureSet, error) {
	log := zap.L().With(zap.String("component", "geo.service"))

	if s.opts.ShapefilePath != "" {
		fs, err := LoadShapefile(s.opts.ShapefilePath, s.opts.NameProperty)
		if err == nil {
			log.Info("loaded boundaries from shapefile",
				zap.String("path", s.opts.ShapefilePath),
				zap.Int("features", fs.Len()),
			)
			return fs, nil
		}
		log.Warn("shapefile boundary load failed, falling back to remote",
			zap.String("path", s.opts.ShapefilePath), zap.Error(err))
	}

	if s.opts.URL == "" {
		return nil, eris.New("geo: no boundary source configured")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geo: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.URL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geo: build request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geo: fetch boundaries")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geo: fetch boundaries: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geo: read boundaries")
	}

	fs, err := ParseGeoJSON(raw, s.opts.NameProperty)
	if err != nil {
		return nil, err
	}
	log.Info("loaded boundaries from remote",
		zap.String("url", s.opts.URL),
		zap.Int("features", fs.Len()),
	)
	return fs, nil
}

// ParseGeoJSON decodes a GeoJSON FeatureCollection and names each feature
// from the given property. Features missing the property are dropped.
func ParseGeoJSON(raw []byte, nameProperty string) (*FeatureSet, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, eris.Wrap(err, "geo: decode geojson")
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		name, ok := f.Properties[nameProperty]
		if !ok {
			continue
		}
		features = append(features, Feature{
			Name:       fmt.Sprint(name),
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}
	return NewFeatureSet(features, raw), nil
}
