package lidar

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/edaniels/golog"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/maypok86/otter/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twpayne/go-proj/v11"
)

// DefaultBaseURL is the public USGS 3DEP Entwine Point Tile bucket.
const DefaultBaseURL = "https://s3-us-west-2.amazonaws.com/usgs-lidar-public/"

var (
	eptInfoLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lidar_ept_info_lookups_total",
		Help: "The total number of EPT metadata lookups",
	})
	eptInfoFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lidar_ept_info_fetches_total",
		Help: "The total number of EPT metadata fetches that missed the cache",
	})
	missingRegionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lidar_ept_missing_region_cache_hits_total",
		Help: "The total number of hits on the missing region cache",
	})
)

// ErrRegionNotFound is returned when a region has no ept.json in the bucket.
var ErrRegionNotFound = errors.New("region not found")

// An EPTSRS describes the spatial reference system of an EPT dataset.
type EPTSRS struct {
	Authority  string `json:"authority"`
	Horizontal string `json:"horizontal"`
	Vertical   string `json:"vertical"`
	WKT        string `json:"wkt"`
}

// An EPTInfo is the ept.json metadata document of an EPT dataset. Bounds are
// [minx, miny, minz, maxx, maxy, maxz] in the dataset's own SRS.
type EPTInfo struct {
	Bounds           [6]float64 `json:"bounds"`
	BoundsConforming [6]float64 `json:"boundsConforming"`
	Points           int64      `json:"points"`
	Span             int        `json:"span"`
	DataType         string     `json:"dataType"`
	Version          string     `json:"version"`
	SRS              EPTSRS     `json:"srs"`
}

// ConformingBounds returns the dataset's conforming bounds as a 2D Bounds.
func (i *EPTInfo) ConformingBounds() Bounds {
	return Bounds{
		MinX: i.BoundsConforming[0],
		MinY: i.BoundsConforming[1],
		MaxX: i.BoundsConforming[3],
		MaxY: i.BoundsConforming[4],
	}
}

// A MetadataClient looks up EPT metadata for USGS 3DEP regions. Fetched
// documents are cached; regions known to be missing are remembered.
type MetadataClient struct {
	baseURL        string
	httpClient     *http.Client
	logger         golog.Logger
	regions        []string
	infoCache      *otter.Cache[string, *EPTInfo]
	missingRegions *lru.Cache[string, struct{}]
	pj             *proj.PJ
}

// A MetadataClientOption sets an option on a MetadataClient.
type MetadataClientOption func(*MetadataClient)

func WithBaseURL(baseURL string) MetadataClientOption {
	return func(c *MetadataClient) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) MetadataClientOption {
	return func(c *MetadataClient) {
		c.httpClient = httpClient
	}
}

// WithRegions sets the region names the client searches. The public bucket
// has no listing API; the name index ships separately.
func WithRegions(regions []string) MetadataClientOption {
	return func(c *MetadataClient) {
		c.regions = regions
	}
}

// NewMetadataClient returns a new MetadataClient with the given options.
func NewMetadataClient(logger golog.Logger, options ...MetadataClientOption) (*MetadataClient, error) {
	c := &MetadataClient{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, option := range options {
		option(c)
	}

	var err error
	c.infoCache, err = otter.New(&otter.Options[string, *EPTInfo]{
		MaximumSize: 1024,
	})
	if err != nil {
		return nil, err
	}
	c.missingRegions, err = lru.New[string, struct{}](1024)
	if err != nil {
		return nil, err
	}
	c.pj, err = proj.NewCRSToCRS("EPSG:4326", "EPSG:3857", nil)
	if err != nil {
		return nil, errors.Wrap(err, "create CRS transform")
	}
	return c, nil
}

// Regions returns the region names the client searches.
func (c *MetadataClient) Regions() []string {
	return c.regions
}

// Info returns the EPT metadata for region, fetching it on first use.
func (c *MetadataClient) Info(ctx context.Context, region string) (*EPTInfo, error) {
	eptInfoLookups.Inc()
	if c.missingRegions.Contains(region) {
		missingRegionCacheHits.Inc()
		return nil, errors.Wrap(ErrRegionNotFound, region)
	}
	info, err := c.infoCache.Get(ctx, region, otter.LoaderFunc[string, *EPTInfo](c.fetchInfo))
	if err != nil {
		return nil, err
	}
	return info, nil
}

// FindRegions returns the regions whose conforming bounds intersect
// bounds4326, a WGS84 (lon, lat) bounding box. The bucket stores bounds in
// EPSG:3857, so the box is reprojected before comparison.
func (c *MetadataClient) FindRegions(ctx context.Context, bounds4326 Bounds) ([]string, error) {
	// EPSG:4326 axis order is latitude first.
	coords := [][]float64{
		{bounds4326.MinY, bounds4326.MinX},
		{bounds4326.MaxY, bounds4326.MaxX},
	}
	if err := c.pj.ForwardFloat64Slices(coords); err != nil {
		return nil, errors.Wrap(err, "reproject bounds")
	}
	projected := Bounds{
		MinX: coords[0][0],
		MinY: coords[0][1],
		MaxX: coords[1][0],
		MaxY: coords[1][1],
	}

	var found []string
	for _, region := range c.regions {
		info, err := c.Info(ctx, region)
		if errors.Is(err, ErrRegionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if info.ConformingBounds().Intersects(projected) {
			found = append(found, region)
		}
	}
	c.logger.Debugw("region search",
		"bounds", projected,
		"searched", len(c.regions),
		"found", len(found),
	)
	return found, nil
}

func (c *MetadataClient) fetchInfo(ctx context.Context, region string) (*EPTInfo, error) {
	eptInfoFetches.Inc()
	url := c.baseURL + region + "/ept.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", url)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		// Public S3 answers 403 for unknown keys when listing is disabled.
		c.missingRegions.Add(region, struct{}{})
		return nil, errors.Wrap(ErrRegionNotFound, region)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	var info EPTInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.Wrapf(err, "decode %s", url)
	}
	return &info, nil
}

// LoadRegionNames reads a region name index, one name per line. Blank lines
// and lines starting with '#' are skipped.
func LoadRegionNames(r io.Reader) ([]string, error) {
	var regions []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		regions = append(regions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}
