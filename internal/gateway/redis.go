package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

const (
	opRedisNew       = "redis.new"
	opRedisList      = "redis.list"
	opRedisGet       = "redis.get"
	opRedisGetBySlug = "redis.get_by_slug"
	opRedisCreate    = "redis.create"
	opRedisUpdate    = "redis.update"
	opRedisDelete    = "redis.delete"
	opRedisPublish   = "redis.publish"
	opRedisUnpublish = "redis.unpublish"

	defaultRedisKeyPrefix = "pagebuilder"
	maxOptimisticRetries  = 5
)

var errMissingRedisClient = errors.New("redis client is required")

// RedisConfig describes a redis-backed gateway.
type RedisConfig struct {
	Client    redis.UniversalClient
	KeyPrefix string
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Redis stores one JSON document per page plus a set of all page ids and an id sequence.
type Redis struct {
	client redis.UniversalClient
	keys   redisKeys
	clock  func() time.Time
	logger *zap.Logger
}

type redisKeys struct {
	prefix string
}

func (k redisKeys) page(id string) string {
	return k.prefix + ":page:" + id
}

func (k redisKeys) all() string {
	return k.prefix + ":pages:all"
}

func (k redisKeys) sequence() string {
	return k.prefix + ":pages:seq"
}

// NewRedis constructs a gateway over a connected client.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, newError(opRedisNew, "missing_client", errMissingRedisClient)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Redis{
		client: cfg.Client,
		keys:   redisKeys{prefix: prefix},
		clock:  clock,
		logger: logger,
	}, nil
}

func (r *Redis) List(ctx context.Context) ([]pages.Page, error) {
	ids, err := r.client.SMembers(ctx, r.keys.all()).Result()
	if err != nil {
		logError(r.logger, opRedisList, "members_failed", err)
		return nil, newError(opRedisList, "members_failed", err)
	}
	if len(ids) == 0 {
		return []pages.Page{}, nil
	}
	keys := make([]string, len(ids))
	for index, id := range ids {
		keys[index] = r.keys.page(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		logError(r.logger, opRedisList, "mget_failed", err)
		return nil, newError(opRedisList, "mget_failed", err)
	}
	out := make([]pages.Page, 0, len(values))
	for index, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Set member without a document; skip it.
			r.logger.Warn("page id without document", zap.String("page_id", ids[index]))
			continue
		}
		page, err := decodePage([]byte(raw))
		if err != nil {
			logError(r.logger, opRedisList, "decode_failed", err, zap.String("page_id", ids[index]))
			return nil, newError(opRedisList, "decode_failed", err)
		}
		out = append(out, page)
	}
	sortPages(out)
	return out, nil
}

func (r *Redis) Get(ctx context.Context, id string) (pages.Page, error) {
	return r.load(ctx, r.client, opRedisGet, id)
}

func (r *Redis) GetBySlug(ctx context.Context, slug string) (pages.Page, error) {
	all, err := r.List(ctx)
	if err != nil {
		return pages.Page{}, newError(opRedisGetBySlug, "list_failed", err)
	}
	for _, page := range all {
		if page.Slug == slug {
			return page, nil
		}
	}
	return pages.Page{}, notFound(opRedisGetBySlug, slug)
}

func (r *Redis) Create(ctx context.Context, draft PageDraft) (pages.Page, error) {
	sequence, err := r.client.Incr(ctx, r.keys.sequence()).Result()
	if err != nil {
		logError(r.logger, opRedisCreate, "sequence_failed", err)
		return pages.Page{}, newError(opRedisCreate, "sequence_failed", err)
	}
	page, err := newPageFromDraft(strconv.FormatInt(sequence, 10), draft, r.now())
	if err != nil {
		return pages.Page{}, newError(opRedisCreate, "invalid_draft", err)
	}
	encoded, err := json.Marshal(page)
	if err != nil {
		return pages.Page{}, newError(opRedisCreate, "encode_failed", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keys.page(page.ID), encoded, 0)
		pipe.SAdd(ctx, r.keys.all(), page.ID)
		return nil
	})
	if err != nil {
		logError(r.logger, opRedisCreate, "write_failed", err, zap.String("page_id", page.ID))
		return pages.Page{}, newError(opRedisCreate, "write_failed", err)
	}
	return page, nil
}

func (r *Redis) Update(ctx context.Context, id string, patch PagePatch) (pages.Page, error) {
	return r.modify(ctx, opRedisUpdate, id, func(page pages.Page) (pages.Page, error) {
		return applyPatch(page, patch, r.now())
	})
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	var deleted *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, r.keys.page(id))
		pipe.SRem(ctx, r.keys.all(), id)
		return nil
	})
	if err != nil {
		logError(r.logger, opRedisDelete, "write_failed", err, zap.String("page_id", id))
		return newError(opRedisDelete, "write_failed", err)
	}
	if deleted.Val() == 0 {
		return notFound(opRedisDelete, id)
	}
	return nil
}

func (r *Redis) Publish(ctx context.Context, id string) (pages.Page, error) {
	return r.modify(ctx, opRedisPublish, id, func(page pages.Page) (pages.Page, error) {
		return withStatus(page, pages.PageStatusPublished, r.now()), nil
	})
}

func (r *Redis) Unpublish(ctx context.Context, id string) (pages.Page, error) {
	return r.modify(ctx, opRedisUnpublish, id, func(page pages.Page) (pages.Page, error) {
		return withStatus(page, pages.PageStatusDraft, r.now()), nil
	})
}

func (r *Redis) load(ctx context.Context, client redis.Cmdable, operation, id string) (pages.Page, error) {
	raw, err := client.Get(ctx, r.keys.page(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return pages.Page{}, notFound(operation, id)
	}
	if err != nil {
		logError(r.logger, operation, "get_failed", err, zap.String("page_id", id))
		return pages.Page{}, newError(operation, "get_failed", err)
	}
	page, err := decodePage(raw)
	if err != nil {
		return pages.Page{}, newError(operation, "decode_failed", err)
	}
	return page, nil
}

// modify runs a read-modify-write under WATCH so concurrent writers retry instead of clobbering.
func (r *Redis) modify(ctx context.Context, operation, id string, change func(pages.Page) (pages.Page, error)) (pages.Page, error) {
	key := r.keys.page(id)
	var updated pages.Page
	transaction := func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, operation, id)
		if err != nil {
			return err
		}
		updated, err = change(current)
		if err != nil {
			return newError(operation, "invalid_patch", err)
		}
		encoded, err := json.Marshal(updated)
		if err != nil {
			return newError(operation, "encode_failed", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxOptimisticRetries; attempt++ {
		err := r.client.Watch(ctx, transaction, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var gatewayErr *Error
		if errors.As(err, &gatewayErr) {
			return pages.Page{}, err
		}
		logError(r.logger, operation, "write_failed", err, zap.String("page_id", id))
		return pages.Page{}, newError(operation, "write_failed", err)
	}
	return pages.Page{}, newError(operation, "contention", redis.TxFailedErr)
}

func (r *Redis) now() time.Time {
	return r.clock().UTC()
}

func decodePage(raw []byte) (pages.Page, error) {
	var page pages.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return pages.Page{}, err
	}
	page.Blocks = normalizeBlocks(page.Blocks)
	return page, nil
}

// sortPages orders pages by creation time, then by numeric id.
func sortPages(list []pages.Page) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		left, leftErr := strconv.Atoi(list[i].ID)
		right, rightErr := strconv.Atoi(list[j].ID)
		if leftErr == nil && rightErr == nil {
			return left < right
		}
		return list[i].ID < list[j].ID
	})
}
