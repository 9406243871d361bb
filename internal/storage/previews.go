/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"oshicropper/internal/imagelist"
	applog "oshicropper/internal/log"
)

// DefaultMaxBytes is the cache cap used when none is configured.
const DefaultMaxBytes int64 = 64 * 1024 * 1024

// Cache is the preview store of one session.
type Cache struct {
	root     string
	db       *sql.DB
	maxBytes int64
	log      *slog.Logger
	// clock yields strictly increasing access stamps for LRU ordering
	clock atomic.Int64
}

// OpenCache opens the session's preview cache. A corrupt database is discarded and recreated.
func OpenCache(sessionRoot string, maxBytes int64) (*Cache, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	l := applog.WithComponent("storage")
	db, err := openDB(sessionRoot)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ok := healthy(ctx, db)
		cancel()
		if !ok {
			_ = db.Close()
			err = errors.New("quick_check failed")
		}
	}
	if err != nil {
		l.Warn("preview cache unusable, rebuilding", "root", sessionRoot, "err", err)
		removeCacheFiles(CachePath(sessionRoot))
		if db, err = openDB(sessionRoot); err != nil {
			return nil, fmt.Errorf("rebuild preview cache: %w", err)
		}
	}
	c := &Cache{root: sessionRoot, db: db, maxBytes: maxBytes, log: l}
	c.clock.Store(time.Now().UnixNano())
	return c, nil
}

// Close releases the database.
func (c *Cache) Close() error { return c.db.Close() }

func (c *Cache) tick() int64 {
	now := time.Now().UnixNano()
	for {
		prev := c.clock.Load()
		next := max(now, prev+1)
		if c.clock.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// Get returns the cached preview for digest at the given edge and marks it recently used.
func (c *Cache) Get(ctx context.Context, digest string, edge int) ([]byte, bool, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT blob FROM previews WHERE digest=? AND edge=?`, digest, edge).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query preview: %w", err)
	}
	_, _ = c.db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE digest=? AND edge=?`, c.tick(), digest, edge)
	return blob, true, nil
}

// Put stores a preview and evicts least-recently-used rows beyond the byte cap.
func (c *Cache) Put(ctx context.Context, digest string, edge int, blob []byte) error {
	if digest == "" || len(blob) == 0 {
		return errors.New("preview needs a digest and data")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := c.db.ExecContext(ctx, `INSERT INTO previews(digest,edge,blob,size,created_at,last_access)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(digest,edge) DO UPDATE SET blob=excluded.blob, size=excluded.size, last_access=excluded.last_access`,
		digest, edge, blob, len(blob), now, c.tick())
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	return c.EvictToFit(ctx, c.maxBytes)
}

// GetOrCreate returns the cached preview or generates and stores it.
func (c *Cache) GetOrCreate(ctx context.Context, digest string, edge int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, ok, err := c.Get(ctx, digest, edge); err != nil {
		return nil, err
	} else if ok {
		return b, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Put(ctx, digest, edge, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Thumbnail returns the cached thumbnail of e, rendering it on a miss.
func (c *Cache) Thumbnail(ctx context.Context, e imagelist.Entry, edge int) ([]byte, error) {
	return c.GetOrCreate(ctx, e.Digest(), edge, func(context.Context) ([]byte, error) {
		return RenderThumbnail(e, edge)
	})
}

// Purge drops every preview variant of digest and returns the freed bytes.
func (c *Cache) Purge(ctx context.Context, digest string) (int64, error) {
	var freed int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews WHERE digest=?`, digest).Scan(&freed); err != nil {
		return 0, fmt.Errorf("size of %s: %w", digest, err)
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM previews WHERE digest=?`, digest); err != nil {
		return 0, fmt.Errorf("purge %s: %w", digest, err)
	}
	return freed, nil
}

// Retain drops previews of every digest not in keep.
func (c *Cache) Retain(ctx context.Context, keep []string) (int64, error) {
	before, err := c.TotalBytes(ctx)
	if err != nil {
		return 0, err
	}
	q := `DELETE FROM previews`
	args := make([]any, len(keep))
	if len(keep) > 0 {
		q += ` WHERE digest NOT IN (` + strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",") + `)`
		for i, k := range keep {
			args[i] = k
		}
	}
	if _, err := c.db.ExecContext(ctx, q, args...); err != nil {
		return 0, fmt.Errorf("retain previews: %w", err)
	}
	after, err := c.TotalBytes(ctx)
	if err != nil {
		return 0, err
	}
	return before - after, nil
}

// EvictToFit deletes least-recently-used rows until the total size is <= capBytes.
func (c *Cache) EvictToFit(ctx context.Context, capBytes int64) error {
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() && cur > capBytes {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// close the cursor before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM previews WHERE id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(victims)), ",") + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	c.log.Debug("previews evicted", "rows", len(victims), "bytes", total-cur)
	return nil
}

// TotalBytes returns the bytes held by the cache.
func (c *Cache) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum previews size: %w", err)
	}
	return total, nil
}

// Count returns the number of cached previews.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM previews`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Watch purges previews of images that leave list, unless another entry still holds the same bytes.
func (c *Cache) Watch(list *imagelist.List) {
	list.Subscribe(func(ch imagelist.Change) {
		if ch.Kind != imagelist.Replaced && ch.Kind != imagelist.Removed {
			return
		}
		digest := ch.Old.Digest()
		for _, e := range list.Entries() {
			if e.Digest() == digest {
				return
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if freed, err := c.Purge(ctx, digest); err != nil {
			c.log.Warn("purge preview failed", "digest", digest, "err", err)
		} else if freed > 0 {
			c.log.Debug("preview purged", "digest", digest, "bytes", freed)
		}
	})
}
