package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/olivere/elastic/v7"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CatalystCode/elastic-osm-tiles/internal/errkind"
	"github.com/CatalystCode/elastic-osm-tiles/internal/osm"
)

// IndexErrorGroup is a set of per-document bulk failures sharing one reason.
type IndexErrorGroup struct {
	Reason string
	Count  int
}

func (g IndexErrorGroup) String() string {
	return fmt.Sprintf("%s (x%d)", g.Reason, g.Count)
}

// GroupBulkErrors reduces a bulk response's per-document failures into
// groups by reason, counting occurrences. An empty result means the bulk
// fully succeeded.
func GroupBulkErrors(resp *elastic.BulkResponse) []IndexErrorGroup {
	if resp == nil {
		return nil
	}

	counts := make(map[string]int)
	for _, item := range resp.Failed() {
		reason := "unknown failure"
		if item.Error != nil && item.Error.Reason != "" {
			reason = item.Error.Reason
		}
		counts[reason]++
	}
	if len(counts) == 0 {
		return nil
	}

	groups := make([]IndexErrorGroup, 0, len(counts))
	for reason, count := range counts {
		groups = append(groups, IndexErrorGroup{Reason: reason, Count: count})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Reason < groups[j].Reason })
	return groups
}

// BulkIndexTile upserts one tile's places, then marks the tile cached. The
// cache marker is only written after every place document landed, so a
// partially indexed tile stays a cache miss and is retried on the next
// query.
func (s *Store) BulkIndexTile(ctx context.Context, quadKey string, places map[int64]*osm.Place) error {
	if len(places) > 0 {
		bulk := s.client.Bulk().Index(s.places)
		for _, place := range places {
			bulk = bulk.Add(elastic.NewBulkIndexRequest().Id(place.ID).Doc(place))
		}

		resp, err := bulk.Do(ctx)
		if err != nil {
			return eris.Wrapf(eris.Wrap(errkind.ErrIndex, err.Error()), "index: bulk upsert tile %s", quadKey)
		}

		if groups := GroupBulkErrors(resp); len(groups) > 0 {
			reasons := make([]string, len(groups))
			for i, g := range groups {
				reasons[i] = g.String()
			}
			return eris.Wrapf(errkind.ErrIndex, "index: bulk upsert tile %s failed: %s", quadKey, strings.Join(reasons, "; "))
		}
	}

	marker := TileCache{QuadKey: quadKey, CreatedAt: time.Now().UTC()}
	if _, err := s.client.Index().
		Index(s.tiles).
		Id(quadKey).
		BodyJson(marker).
		Do(ctx); err != nil {
		return eris.Wrapf(eris.Wrap(errkind.ErrIndex, err.Error()), "index: mark tile %s cached", quadKey)
	}

	zap.L().Debug("indexed tile",
		zap.String("quadkey", quadKey),
		zap.Int("places", len(places)))
	return nil
}
