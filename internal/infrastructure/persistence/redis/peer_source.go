package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/careerwise/careerwise-hub/internal/domain/leaderboard"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

const (
	keyPeersXP   = PrefixLeaderboard + "peers"
	keyPeersInfo = PrefixLeaderboard + "peers:info"
)

// PeerSource serves leaderboard peers from a sorted set scored by XP.
// Peer details are kept in a companion hash.
type PeerSource struct {
	cache *Cache
	log   *logger.Logger
}

var _ leaderboard.PeerSource = (*PeerSource)(nil)

// NewPeerSource creates a PeerSource. Undecodable peer entries are skipped
// and reported to log.
func NewPeerSource(cache *Cache, log *logger.Logger) *PeerSource {
	if log == nil {
		log = logger.Nop()
	}
	return &PeerSource{cache: cache, log: log.With(logger.Component("redis_peers"))}
}

// Upsert writes peers in one pipeline.
func (s *PeerSource) Upsert(ctx context.Context, peers ...leaderboard.Peer) error {
	if len(peers) == 0 {
		return nil
	}

	pipe := s.cache.Client().Pipeline()
	members := make([]redis.Z, 0, len(peers))
	info := make(map[string]interface{}, len(peers))
	for _, p := range peers {
		if p.ID == "" {
			continue
		}
		members = append(members, redis.Z{Score: float64(p.XP), Member: p.ID})
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal peer %s: %w", p.ID, err)
		}
		info[p.ID] = data
	}
	if len(members) == 0 {
		return nil
	}
	pipe.ZAdd(ctx, keyPeersXP, members...)
	pipe.HSet(ctx, keyPeersInfo, info)

	_, err := pipe.Exec(ctx)
	return err
}

// Peers returns the top peers by XP, skipping excludeUserID.
func (s *PeerSource) Peers(ctx context.Context, excludeUserID string, limit int) ([]leaderboard.Peer, error) {
	stop := int64(-1)
	if limit > 0 {
		// one extra in case the caller is in the set
		stop = int64(limit)
	}
	ids, err := s.cache.Client().ZRevRange(ctx, keyPeersXP, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []leaderboard.Peer{}, nil
	}

	raw, err := s.cache.Client().HMGet(ctx, keyPeersInfo, ids...).Result()
	if err != nil {
		return nil, err
	}

	out, skipped := decodePeers(ids, raw, excludeUserID, limit)
	for id, err := range skipped {
		s.log.Warn("skipping corrupt peer entry", logger.UserID(id), logger.Err(err))
	}
	return out, nil
}

// decodePeers pairs ranked IDs with their hash entries. An ID without an
// entry is named by its ID. An entry that fails to decode is left out and
// returned in skipped.
func decodePeers(ids []string, raw []interface{}, excludeUserID string, limit int) (out []leaderboard.Peer, skipped map[string]error) {
	out = make([]leaderboard.Peer, 0, len(ids))
	for i, id := range ids {
		if id == excludeUserID {
			continue
		}
		p := leaderboard.Peer{ID: id, Name: id}
		if i < len(raw) {
			if str, ok := raw[i].(string); ok {
				if err := json.Unmarshal([]byte(str), &p); err != nil {
					if skipped == nil {
						skipped = make(map[string]error)
					}
					skipped[id] = err
					continue
				}
			}
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, skipped
}
