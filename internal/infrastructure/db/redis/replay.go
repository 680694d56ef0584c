package redis

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
)

// ReplayGuard is the consumed-voucher set.
// Key format: replay:<hex blake2b-256 of uid|timestamp>
type ReplayGuard struct {
	client *redis.Client
}

func NewReplayGuard(client *redis.Client) *ReplayGuard {
	return &ReplayGuard{client: client}
}

// Claim stores the voucher key with SET NX. Only the first caller for a
// given voucher gets true.
func (g *ReplayGuard) Claim(ctx context.Context, v domain.Voucher, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, replayKey(v), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay claim: %w", err)
	}
	return ok, nil
}

func (g *ReplayGuard) Release(ctx context.Context, v domain.Voucher) error {
	if err := g.client.Del(ctx, replayKey(v)).Err(); err != nil {
		return fmt.Errorf("replay release: %w", err)
	}
	return nil
}

func replayKey(v domain.Voucher) string {
	sum := blake2b.Sum256([]byte(v.UID + "|" + strconv.FormatInt(v.Timestamp, 10)))
	return "replay:" + hex.EncodeToString(sum[:])
}
