package holdstore

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// acquireScript claims every key for the holder or none of them. A key
// already owned by the same holder is not a conflict, so retried requests
// refresh their own holds instead of fighting them.
var acquireScript = redis.NewScript(`
	-- KEYS = hold keys (hold:{showtime}:{seat}), ARGV = [holderID, ttlSeconds]

	local conflicts = {}

	for i = 1, #KEYS do
		local owner = redis.call("GET", KEYS[i])
		if owner and owner ~= ARGV[1] then
			table.insert(conflicts, KEYS[i])
		end
	end

	if #conflicts > 0 then
		return conflicts
	end

	for i = 1, #KEYS do
		redis.call("SET", KEYS[i], ARGV[1], "EX", ARGV[2])
	end

	return {}
`)

// releaseScript deletes only the keys still owned by the holder. A stale
// client or a reconciler sweep can never drop someone else's current hold.
var releaseScript = redis.NewScript(`
	-- KEYS = hold keys, ARGV = [holderID]

	for i = 1, #KEYS do
		if redis.call("GET", KEYS[i]) == ARGV[1] then
			redis.call("DEL", KEYS[i])
		end
	end

	return redis.status_reply("OK")
`)

// RedisHoldStore keeps one key per held seat with a TTL. There is no
// secondary index to drift out of sync; the display view is derived by
// scanning the per-showtime key range.
type RedisHoldStore struct {
	client redis.UniversalClient
}

func NewRedisHoldStore(client redis.UniversalClient) *RedisHoldStore {
	return &RedisHoldStore{client: client}
}

func (s *RedisHoldStore) Acquire(
	ctx context.Context,
	showtimeID int,
	seatIDs []int,
	holderID string,
	ttl time.Duration) ([]int, error) {

	if len(seatIDs) == 0 {
		return nil, nil
	}

	ttlSeconds := int(ttl.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	keys := holdKeys(showtimeID, seatIDs)

	result, err := acquireScript.Run(ctx, s.client, keys, holderID, ttlSeconds).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run seat hold acquire script: %w", err)
	}

	if len(result) == 0 {
		return nil, nil
	}

	conflicts := make([]int, 0, len(result))
	for _, v := range result {
		key, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected conflict entry %v from acquire script", v)
		}

		seatID, err := seatIDFromKey(key)
		if err != nil {
			return nil, err
		}

		conflicts = append(conflicts, seatID)
	}
	slices.Sort(conflicts)

	return conflicts, nil
}

func (s *RedisHoldStore) Release(ctx context.Context, showtimeID int, seatIDs []int, holderID string) error {
	if len(seatIDs) == 0 {
		return nil
	}

	err := releaseScript.Run(ctx, s.client, holdKeys(showtimeID, seatIDs), holderID).Err()
	if err != nil {
		return fmt.Errorf("failed to run seat hold release script: %w", err)
	}

	return nil
}

// Snapshot lists the seats currently held for a showtime. It iterates the
// key range and is eventually consistent; callers must not use it for
// binding decisions.
func (s *RedisHoldStore) Snapshot(ctx context.Context, showtimeID int) ([]int, error) {
	var seatIDs []int

	iter := s.client.Scan(ctx, 0, holdKeyPattern(showtimeID), 100).Iterator()
	for iter.Next(ctx) {
		seatID, err := seatIDFromKey(iter.Val())
		if err != nil {
			return nil, err
		}

		seatIDs = append(seatIDs, seatID)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan seat holds: %w", err)
	}

	slices.Sort(seatIDs)

	return seatIDs, nil
}

func holdKeys(showtimeID int, seatIDs []int) []string {
	keys := make([]string, len(seatIDs))
	for i, seatID := range seatIDs {
		keys[i] = holdKey(showtimeID, seatID)
	}

	return keys
}

func holdKey(showtimeID, seatID int) string {
	return fmt.Sprintf("hold:%d:%d", showtimeID, seatID)
}

func holdKeyPattern(showtimeID int) string {
	return fmt.Sprintf("hold:%d:*", showtimeID)
}

func seatIDFromKey(key string) (int, error) {
	seatID, err := strconv.Atoi(key[strings.LastIndex(key, ":")+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed seat hold key %q", key)
	}

	return seatID, nil
}
