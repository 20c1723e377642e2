package mircache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"boxelab/internal/mircache"
	"boxelab/internal/pipeline"
)

func TestCache_HitMiss(t *testing.T) {
	c, err := mircache.OpenDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	k1 := mircache.Key("0.1.0", []string{"validate"}, []byte("a"))
	k2 := mircache.Key("0.1.0", []string{"validate"}, []byte("b"))

	want := &mircache.Payload{
		Source: "a.toml",
		Passes: []string{"validate"},
		Dump:   "funcs=0\n",
		Stats:  pipeline.Stats{Funcs: []pipeline.FuncStats{{Func: "f", Places: 2, Temps: 2}}, BoxTypes: 1},
	}
	if err := c.Put(k1, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got mircache.Payload
	if ok, err := c.Get(k2, &got); ok || err != nil {
		t.Fatalf("expected miss on different key, got ok=%v err=%v", ok, err)
	}
	ok, err := c.Get(k1, &got)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Dump != want.Dump || got.Source != "a.toml" || len(got.Stats.Funcs) != 1 || got.Stats.Funcs[0].Places != 2 {
		t.Fatalf("payload mismatch: %+v", got)
	}

	entries, err := os.ReadDir(filepath.Join(c.Dir(), "mir"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the entry file, found %d files", len(entries))
	}
}

func TestCache_SchemaMismatchIsMiss(t *testing.T) {
	c, err := mircache.OpenDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := mircache.Key("v", nil, []byte("x"))

	data, err := msgpack.Marshal(&mircache.Payload{Schema: 999, Dump: "stale"})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(c.Dir(), "mir", key.String()+".mp")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	var got mircache.Payload
	if ok, err := c.Get(key, &got); ok || err != nil {
		t.Fatalf("stale schema should miss, got ok=%v err=%v", ok, err)
	}
}

func TestCache_DropAll(t *testing.T) {
	c, err := mircache.OpenDir(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	key := mircache.Key("v", nil, nil)
	if err := c.Put(key, &mircache.Payload{Dump: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	var got mircache.Payload
	if ok, _ := c.Get(key, &got); ok {
		t.Fatalf("entry survived DropAll")
	}
	if err := c.Put(key, &mircache.Payload{Dump: "y"}); err != nil {
		t.Fatalf("Put after DropAll: %v", err)
	}
}

func TestKey_SeparatesFields(t *testing.T) {
	a := mircache.Key("v", []string{"ab"}, []byte("c"))
	b := mircache.Key("v", []string{"a"}, []byte("bc"))
	if a == b {
		t.Fatalf("field boundaries must affect the key")
	}
	if a != mircache.Key("v", []string{"ab"}, []byte("c")) {
		t.Fatalf("key is not deterministic")
	}
}

func TestNilCache(t *testing.T) {
	var c *mircache.Cache
	if err := c.Put(mircache.Digest{}, &mircache.Payload{}); err != nil {
		t.Fatal(err)
	}
	var got mircache.Payload
	if ok, err := c.Get(mircache.Digest{}, &got); ok || err != nil {
		t.Fatalf("nil cache Get = %v, %v", ok, err)
	}
}
