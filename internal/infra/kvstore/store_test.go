package kvstore

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNew_AlwaysReturnsStorage(t *testing.T) {
	if s := New(RedisConfig{}); s == nil {
		t.Fatalf("expected non-nil memory store when redis addr empty")
	}

	if s := New(RedisConfig{Addr: "127.0.0.1:1", DB: 0}); s == nil {
		t.Fatalf("expected non-nil store even with unreachable redis")
	}
}

func TestNew_UsesRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(RedisConfig{Addr: mr.Addr()})

	if err := s.Set("doc", []byte("pdf"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("doc") {
		t.Fatalf("expected key to be written to redis")
	}
	got, err := s.Get("doc")
	if err != nil || string(got) != "pdf" {
		t.Fatalf("get = %q, %v", got, err)
	}
}
