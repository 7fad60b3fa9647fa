package lidar_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/edaniels/golog"

	"github.com/eandualem/go-twi/lidar"
)

const iowaEPTJSON = `{
	"bounds": [-10158190, 4886461, -613, -10106718, 4937933, 50859],
	"boundsConforming": [-10158178, 4886474, 190, -10106730, 4937921, 485],
	"dataType": "laszip",
	"points": 2250033001,
	"span": 256,
	"srs": {
		"authority": "EPSG",
		"horizontal": "3857",
		"wkt": "PROJCS[\"WGS 84 / Pseudo-Mercator\"]"
	},
	"version": "1.0.0"
}`

func TestMetadataClient_Info(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/IA_FullState/ept.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(iowaEPTJSON))
	}))
	defer server.Close()

	client, err := lidar.NewMetadataClient(golog.NewTestLogger(t),
		lidar.WithBaseURL(server.URL+"/"),
		lidar.WithHTTPClient(server.Client()),
	)
	assert.NoError(t, err)

	ctx := context.Background()
	info, err := client.Info(ctx, "IA_FullState")
	assert.NoError(t, err)
	assert.Equal(t, int64(2250033001), info.Points)
	assert.Equal(t, "3857", info.SRS.Horizontal)
	assert.Equal(t, lidar.Bounds{
		MinX: -10158178,
		MinY: 4886474,
		MaxX: -10106730,
		MaxY: 4937921,
	}, info.ConformingBounds())

	// Second lookup is served from the cache.
	_, err = client.Info(ctx, "IA_FullState")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), requests.Load())
}

func TestMetadataClient_MissingRegion(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := lidar.NewMetadataClient(golog.NewTestLogger(t),
		lidar.WithBaseURL(server.URL+"/"),
		lidar.WithHTTPClient(server.Client()),
	)
	assert.NoError(t, err)

	ctx := context.Background()
	_, err = client.Info(ctx, "NO_SuchRegion")
	assert.IsError(t, err, lidar.ErrRegionNotFound)

	// The missing region is remembered; no second request goes out.
	_, err = client.Info(ctx, "NO_SuchRegion")
	assert.IsError(t, err, lidar.ErrRegionNotFound)
	assert.Equal(t, int64(1), requests.Load())
}

func TestMetadataClient_FindRegions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/NearOrigin/ept.json":
			_, _ = w.Write([]byte(`{
				"bounds": [-2000000, -2000000, 0, 2000000, 2000000, 100],
				"boundsConforming": [-2000000, -2000000, 0, 2000000, 2000000, 100],
				"points": 1, "span": 256,
				"srs": {"authority": "EPSG", "horizontal": "3857"},
				"version": "1.0.0"
			}`))
		case "/FarAway/ept.json":
			_, _ = w.Write([]byte(`{
				"bounds": [19000000, 19000000, 0, 20000000, 20000000, 100],
				"boundsConforming": [19000000, 19000000, 0, 20000000, 20000000, 100],
				"points": 1, "span": 256,
				"srs": {"authority": "EPSG", "horizontal": "3857"},
				"version": "1.0.0"
			}`))
		case "/Gone/ept.json":
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := lidar.NewMetadataClient(golog.NewTestLogger(t),
		lidar.WithBaseURL(server.URL+"/"),
		lidar.WithHTTPClient(server.Client()),
		lidar.WithRegions([]string{"NearOrigin", "FarAway", "Gone"}),
	)
	assert.NoError(t, err)

	// A degree around the origin, in WGS84 longitude and latitude.
	found, err := client.FindRegions(context.Background(), lidar.Bounds{
		MinX: -1, MinY: -1, MaxX: 1, MaxY: 1,
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"NearOrigin"}, found)
}
