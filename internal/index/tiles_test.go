package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olivere/elastic/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
	"github.com/CatalystCode/elastic-osm-tiles/internal/osm"
)

func TestCacheMisses(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		cached    []string
		want      []string
	}{
		{"partial overlap", []string{"A", "B", "C", "D"}, []string{"B", "C"}, []string{"A", "D"}},
		{"all cached", []string{"A", "B"}, []string{"A", "B"}, nil},
		{"nothing cached", []string{"A", "B"}, nil, []string{"A", "B"}},
		{"empty request", nil, []string{"A"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CacheMisses(tt.requested, tt.cached))
		})
	}
}

// newStubStore wires a Store against an httptest Elasticsearch stub.
func newStubStore(t *testing.T, handler http.Handler) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := elastic.NewSimpleClient(elastic.SetURL(srv.URL))
	require.NoError(t, err)
	return NewWithClient(client, "places-test", "tiles-test")
}

func searchResponse(t *testing.T, sources ...interface{}) string {
	t.Helper()
	hits := make([]string, len(sources))
	for i, src := range sources {
		raw, err := json.Marshal(src)
		require.NoError(t, err)
		hits[i] = fmt.Sprintf(`{"_index":"test","_id":"%d","_source":%s}`, i, raw)
	}
	return fmt.Sprintf(`{"took":1,"hits":{"total":{"value":%d},"hits":[%s]}}`,
		len(sources), strings.Join(hits, ","))
}

func TestCachedTilesReturnsMatches(t *testing.T) {
	store := newStubStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "tiles-test")

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, err := json.Marshal(body["query"])
		require.NoError(t, err)
		assert.Contains(t, string(raw), "quadkey")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse(t,
			TileCache{QuadKey: "A", CreatedAt: time.Now().UTC()},
			TileCache{QuadKey: "C", CreatedAt: time.Now().UTC()},
		))
	}))

	cached, err := store.CachedTiles(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, cached)
}

func TestCachedTilesEmptyRequest(t *testing.T) {
	store := newStubStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no query should be issued for an empty request")
	}))

	cached, err := store.CachedTiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestBulkIndexTileMarksCacheAfterSuccess(t *testing.T) {
	var bulkCalls, markerCalls atomic.Int32

	store := newStubStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "_bulk"):
			bulkCalls.Add(1)
			fmt.Fprint(w, `{"took":1,"errors":false,"items":[{"index":{"_id":"qk-1","status":201}}]}`)
		case strings.Contains(r.URL.Path, "tiles-test/_doc/"):
			markerCalls.Add(1)
			assert.True(t, strings.HasSuffix(r.URL.Path, "/0320101101322020"))
			fmt.Fprint(w, `{"_id":"0320101101322020","result":"created"}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	places := map[int64]*osm.Place{
		1: {ID: "0320101101322020-1", Name: "Joe's", Type: osm.TypeNode},
	}
	err := store.BulkIndexTile(context.Background(), "0320101101322020", places)
	require.NoError(t, err)
	assert.Equal(t, int32(1), bulkCalls.Load())
	assert.Equal(t, int32(1), markerCalls.Load())
}

func TestBulkIndexTileFailureLeavesTileUncached(t *testing.T) {
	var markerCalls atomic.Int32

	store := newStubStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "_bulk"):
			fmt.Fprint(w, `{"took":1,"errors":true,"items":[
				{"index":{"_id":"qk-1","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad geometry"}}}]}`)
		case strings.Contains(r.URL.Path, "tiles-test/_doc/"):
			markerCalls.Add(1)
			fmt.Fprint(w, `{"result":"created"}`)
		}
	}))

	places := map[int64]*osm.Place{
		1: {ID: "qk-1", Name: "Joe's", Type: osm.TypeNode},
	}
	err := store.BulkIndexTile(context.Background(), "qk", places)
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrIndex)
	assert.Contains(t, err.Error(), "bad geometry")
	assert.Equal(t, int32(0), markerCalls.Load(), "a failed tile must not be marked cached")
}

func TestBulkIndexTileEmptyTileStillCached(t *testing.T) {
	var markerCalls atomic.Int32

	store := newStubStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "_bulk"):
			t.Error("no bulk call expected for an empty tile")
		case strings.Contains(r.URL.Path, "tiles-test/_doc/"):
			markerCalls.Add(1)
			fmt.Fprint(w, `{"result":"created"}`)
		}
	}))

	err := store.BulkIndexTile(context.Background(), "qk", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), markerCalls.Load())
}
