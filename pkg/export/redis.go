package export

import (
	"context"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/tracepath/internal/constants"
	"github.com/hyp3rd/tracepath/internal/libs/serializer"
	"github.com/hyp3rd/tracepath/internal/sentinel"
	"github.com/hyp3rd/tracepath/pkg/aggregator"
)

// RedisExporter pushes serialized snapshots onto a Redis list, where a
// downstream consumer drains them into the metrics backend.
type RedisExporter struct {
	rdb        *redis.Client
	listName   string
	maxEntries int64
	serializer serializer.ISerializer
}

var _ aggregator.Exporter = (*RedisExporter)(nil)

// RedisOption is a function type that can be used to configure the RedisExporter.
type RedisOption func(*RedisExporter)

// WithRedisClient sets the Redis client to export through.
func WithRedisClient(client *redis.Client) RedisOption {
	return func(e *RedisExporter) {
		e.rdb = client
	}
}

// WithListName sets the destination list.
func WithListName(listName string) RedisOption {
	return func(e *RedisExporter) {
		e.listName = listName
	}
}

// WithMaxEntries caps the destination list length; older snapshots are
// trimmed away. Zero disables trimming.
func WithMaxEntries(maxEntries int64) RedisOption {
	return func(e *RedisExporter) {
		e.maxEntries = maxEntries
	}
}

// WithSerializer selects the payload serializer by registry name.
func WithSerializer(serializerName string) RedisOption {
	return func(e *RedisExporter) {
		ser, err := serializer.New(serializerName)
		if err != nil {
			return
		}

		e.serializer = ser
	}
}

// NewRedisExporter creates a Redis exporter with the given options. The
// payload serializer defaults to msgpack.
func NewRedisExporter(options ...RedisOption) (*RedisExporter, error) {
	exporter := &RedisExporter{
		listName: constants.RedisSnapshotList,
	}

	for _, option := range options {
		option(exporter)
	}

	if exporter.rdb == nil {
		return nil, sentinel.ErrNilClient
	}

	if exporter.serializer == nil {
		ser, err := serializer.New("msgpack")
		if err != nil {
			return nil, err
		}

		exporter.serializer = ser
	}

	return exporter, nil
}

// NewDefaultRedisClient builds a Redis client tuned for snapshot export:
// generous write timeouts and a small idle pool, since exports are periodic
// rather than latency-sensitive.
func NewDefaultRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  constants.RedisDialTimeout,
		MaxRetries:   constants.RedisClientMaxRetries,
		ReadTimeout:  constants.RedisClientReadTimeout,
		WriteTimeout: constants.RedisClientWriteTimeout,
		PoolTimeout:  constants.RedisClientPoolTimeout,
		PoolSize:     constants.RedisClientPoolSize,
		MinIdleConns: constants.RedisClientMinIdleConns,
	})
}

// Export pushes one serialized snapshot and trims the list when a cap is set.
func (e *RedisExporter) Export(ctx context.Context, snapshot *aggregator.Snapshot) error {
	data, err := e.serializer.Marshal(snapshot)
	if err != nil {
		return err
	}

	err = e.rdb.RPush(ctx, e.listName, data).Err()
	if err != nil {
		return ewrap.Wrap(err, "push snapshot")
	}

	if e.maxEntries > 0 {
		err = e.rdb.LTrim(ctx, e.listName, -e.maxEntries, -1).Err()
		if err != nil {
			return ewrap.Wrap(err, "trim snapshot list")
		}
	}

	return nil
}
