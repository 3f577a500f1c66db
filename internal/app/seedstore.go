package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/seedotp/internal/pkg/config"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"github.com/shandysiswandi/seedotp/internal/pkg/sealer"
	"github.com/shandysiswandi/seedotp/internal/pkg/storage"
	"github.com/shandysiswandi/seedotp/internal/seed/outbound/store"
)

// Seed store drivers selected by seed.store.driver.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverObject   = "object"
)

const pingTimeout = 5 * time.Second

var (
	// ErrUnknownStoreDriver indicates an unsupported seed.store.driver.
	ErrUnknownStoreDriver = errors.New("app: unknown seed store driver")
	// ErrBucketRequired is returned for the object driver without seed.object.bucket.
	ErrBucketRequired = errors.New("app: seed.object.bucket is required")
)

// OpenSeedStore builds the configured seed store. When seed.store.sealing_key
// is set the seed is sealed before it reaches the driver. The returned store
// owns its connections.
func OpenSeedStore(ctx context.Context, cfg config.Config, ins instrument.Instrumentation) (store.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.GetString("seed.store.driver")))

	var (
		st   store.Store
		slot string
		err  error
	)

	switch driver {
	case DriverFile:
		path := cfg.GetString("seed.file.path")
		st, slot = store.NewFile(path), path
	case DriverMemory:
		st, slot = store.NewMemory(), DriverMemory
	case DriverRedis:
		key := cfg.GetString("seed.redis.key")
		st, err = openRedis(ctx, cfg, key)
		slot = key
	case DriverPostgres:
		st, err = openPostgres(ctx, cfg)
		slot = store.PostgresTable
	case DriverObject:
		st, slot, err = openObject(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreDriver, driver)
	}
	if err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(cfg.GetString("seed.store.sealing_key")); key != "" {
		keys, err := sealer.NewHKDFKeyProviderFromBase64(key)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st = store.NewSealed(st, sealer.NewAESGCM(keys), driver+":"+slot)
	}

	return store.NewTraced(st, ins, driver), nil
}

func openRedis(ctx context.Context, cfg config.Config, key string) (*store.Redis, error) {
	opt, err := redis.ParseURL(cfg.GetString("seed.redis.url"))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return store.NewRedis(rdb, key), nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*store.Postgres, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.GetString("seed.postgres.url"))
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}

	if n := cfg.GetInt("seed.postgres.pool.max_conns"); n > 0 {
		pcfg.MaxConns = int32(min(n, 1<<15)) //nolint:gosec // bounded above
	}
	if d := cfg.GetSecond("seed.postgres.pool.max_conn_lifetime_seconds"); d > 0 {
		pcfg.MaxConnLifetime = d
	}
	if d := cfg.GetSecond("seed.postgres.pool.max_conn_idle_seconds"); d > 0 {
		pcfg.MaxConnIdleTime = d
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pg, nil
}

func openObject(ctx context.Context, cfg config.Config) (*store.Object, string, error) {
	bucket := strings.TrimSpace(cfg.GetString("seed.object.bucket"))
	if bucket == "" {
		return nil, "", ErrBucketRequired
	}
	key := strings.TrimSpace(cfg.GetString("seed.object.key"))

	st, err := storage.NewFromDriver(ctx, cfg.GetString("seed.object.driver"), storage.FactoryOptions{
		S3: storage.S3Options{
			Region:       strings.TrimSpace(cfg.GetString("seed.object.s3.region")),
			Endpoint:     strings.TrimSpace(cfg.GetString("seed.object.s3.endpoint")),
			AccessKey:    strings.TrimSpace(cfg.GetString("seed.object.s3.access_key")),
			SecretKey:    strings.TrimSpace(cfg.GetString("seed.object.s3.secret_key")),
			SessionToken: strings.TrimSpace(cfg.GetString("seed.object.s3.session_token")),
			UsePathStyle: cfg.GetBool("seed.object.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{
			CredentialsFile: strings.TrimSpace(cfg.GetString("seed.object.gcs.credentials_file")),
			CredentialsJSON: cfg.GetBinary("seed.object.gcs.credentials_json"),
			Endpoint:        strings.TrimSpace(cfg.GetString("seed.object.gcs.endpoint")),
			WithoutAuth:     cfg.GetBool("seed.object.gcs.without_auth"),
			UserAgent:       strings.TrimSpace(cfg.GetString("seed.object.gcs.user_agent")),
		},
		MinIO: storage.MinIOOptions{
			Region:       strings.TrimSpace(cfg.GetString("seed.object.minio.region")),
			Endpoint:     strings.TrimSpace(cfg.GetString("seed.object.minio.endpoint")),
			AccessKey:    strings.TrimSpace(cfg.GetString("seed.object.minio.access_key")),
			SecretKey:    strings.TrimSpace(cfg.GetString("seed.object.minio.secret_key")),
			SessionToken: strings.TrimSpace(cfg.GetString("seed.object.minio.session_token")),
			UseSSL:       cfg.GetBool("seed.object.minio.use_ssl"),
		},
	})
	if err != nil {
		return nil, "", err
	}

	return store.NewObject(st, bucket, key), bucket + "/" + key, nil
}
