/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"testing"
	"time"

	"oshicropper/internal/imagelist"
)

func openTestCache(t *testing.T, capBytes int64) *Cache {
	t.Helper()
	c, err := OpenCache(t.TempDir(), capBytes)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPreviewsPutGetAndEvict(t *testing.T) {
	c := openTestCache(t, 64)
	ctx := testCtx(t)

	for _, d := range []string{"a", "b", "c"} {
		if err := c.Put(ctx, d, 100, make([]byte, 40)); err != nil {
			t.Fatalf("put %s: %v", d, err)
		}
	}
	total, err := c.TotalBytes(ctx)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total > 64 {
		t.Fatalf("expected eviction to <=64 bytes, got %d", total)
	}
	if _, ok, _ := c.Get(ctx, "a", 100); ok {
		t.Fatalf("oldest preview should have been evicted")
	}
	if _, ok, _ := c.Get(ctx, "c", 100); !ok {
		t.Fatalf("newest preview should be cached")
	}
}

func TestPreviewsEvictLeastRecentlyUsed(t *testing.T) {
	c := openTestCache(t, 100)
	ctx := testCtx(t)
	_ = c.Put(ctx, "a", 1, make([]byte, 40))
	_ = c.Put(ctx, "b", 1, make([]byte, 40))
	if _, ok, _ := c.Get(ctx, "a", 1); !ok {
		t.Fatalf("a missing")
	}
	_ = c.Put(ctx, "c", 1, make([]byte, 40))
	if _, ok, _ := c.Get(ctx, "b", 1); ok {
		t.Fatalf("b was least recently used and should be gone")
	}
	if _, ok, _ := c.Get(ctx, "a", 1); !ok {
		t.Fatalf("recently read a should survive")
	}
}

func TestGetOrCreate(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := testCtx(t)
	calls := 0
	gen := func(context.Context) ([]byte, error) {
		calls++
		return []byte("data"), nil
	}
	for i := 0; i < 3; i++ {
		b, err := c.GetOrCreate(ctx, "k", 64, gen)
		if err != nil || string(b) != "data" {
			t.Fatalf("GetOrCreate: %q %v", b, err)
		}
	}
	if calls != 1 {
		t.Fatalf("generator should run once, ran %d times", calls)
	}
}

func pngEntry(t *testing.T, w, h int) imagelist.Entry {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	e, err := imagelist.FromBytes("p.png", buf.Bytes())
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return e
}

func TestThumbnailFitsEdge(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := testCtx(t)
	b, err := c.Thumbnail(ctx, pngEntry(t, 400, 200), 100)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Fatalf("unexpected thumbnail size %v", img.Bounds())
	}
	small, _ := RenderThumbnail(pngEntry(t, 20, 10), 100)
	img, _ = png.Decode(bytes.NewReader(small))
	if img.Bounds().Dx() != 20 {
		t.Fatalf("small images must not be upscaled, got %v", img.Bounds())
	}
	if _, err := RenderThumbnail(imagelist.Entry{Data: []byte("x")}, 10); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestWatchPurgesOnReplaceAndRemove(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := testCtx(t)
	a, b := pngEntry(t, 3, 3), pngEntry(t, 4, 4)
	list := imagelist.New([]imagelist.Entry{a, b, a})
	c.Watch(list)
	for _, e := range []imagelist.Entry{a, b} {
		if _, err := c.Thumbnail(ctx, e, 32); err != nil {
			t.Fatalf("Thumbnail: %v", err)
		}
	}

	// a is still at index 2, so its preview stays
	if _, err := list.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := c.Get(ctx, a.Digest(), 32); !ok {
		t.Fatalf("preview of a still listed image was purged")
	}
	if err := list.Replace(1, b); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if _, ok, _ := c.Get(ctx, a.Digest(), 32); ok {
		t.Fatalf("preview of replaced image should be purged")
	}
	if _, err := list.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if n, _ := c.Count(ctx); n != 1 {
		t.Fatalf("b is still listed once, expected 1 preview, got %d", n)
	}
}

func TestRetain(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := testCtx(t)
	_ = c.Put(ctx, "keep", 1, []byte("12345"))
	_ = c.Put(ctx, "drop", 1, []byte("123"))
	freed, err := c.Retain(ctx, []string{"keep"})
	if err != nil || freed != 3 {
		t.Fatalf("Retain: freed=%d err=%v", freed, err)
	}
	freed, err = c.Retain(ctx, nil)
	if err != nil || freed != 5 {
		t.Fatalf("Retain(nil): freed=%d err=%v", freed, err)
	}
}

func TestCorruptCacheIsRebuilt(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(root+"/"+CacheDirName, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(CachePath(root), []byte("this is not a database, just garbage bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := OpenCache(root, 0)
	if err != nil {
		t.Fatalf("OpenCache should rebuild a corrupt file: %v", err)
	}
	defer c.Close()
	if err := c.Put(context.Background(), "x", 1, []byte("y")); err != nil {
		t.Fatalf("Put after rebuild: %v", err)
	}
}
