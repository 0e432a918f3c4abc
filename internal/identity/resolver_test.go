package identity

import (
	"context"
	"testing"

	"github.com/yungbote/upright-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestHashKeyDeterministic(t *testing.T) {
	if HashKey("demo") != HashKey("demo") {
		t.Fatal("HashKey is not deterministic")
	}
	if got := HashKey("demo"); got != 3079651 {
		t.Fatalf("HashKey(demo) = %d, want 3079651", got)
	}
}

func TestHashKeyFloor(t *testing.T) {
	if got := HashKey(""); got != 1 {
		t.Fatalf("HashKey of empty input = %d, want 1", got)
	}
	for _, raw := range []string{"demo", "a", "user@example.com"} {
		if got := HashKey(raw); got <= 0 || got >= 1000000000 {
			t.Fatalf("HashKey(%q) = %d, out of range", raw, got)
		}
	}
}

func TestResolveNormalizes(t *testing.T) {
	r := NewResolver(nil, testLogger(t))
	ctx := context.Background()

	a := r.Resolve(ctx, "Demo ")
	b := r.Resolve(ctx, "demo")
	if a.Key != b.Key {
		t.Fatalf("case/whitespace changed the key: %d vs %d", a.Key, b.Key)
	}
	if a.Registered() {
		t.Fatal("anonymous identifier must not resolve as registered")
	}
}

func TestResolveEmptyDefaultsToDemo(t *testing.T) {
	r := NewResolver(nil, testLogger(t))
	got := r.Resolve(context.Background(), "")
	if got.Key != HashKey("demo") {
		t.Fatalf("empty identifier key = %d, want demo key %d", got.Key, HashKey("demo"))
	}
}

func TestResolveEmailWithoutRegistry(t *testing.T) {
	r := NewResolver(nil, testLogger(t))
	got := r.Resolve(context.Background(), "someone@example.com")
	if got.Registered() {
		t.Fatal("email must stay unregistered without a registry")
	}
	if got.Key != HashKey("someone@example.com") {
		t.Fatalf("email key = %d, want hash of normalized email", got.Key)
	}
}

func TestFriendKey(t *testing.T) {
	a := FriendKey("Owner@Example.com", "buddy")
	b := FriendKey("owner@example.com", " Buddy ")
	if a != b {
		t.Fatalf("FriendKey not normalization-stable: %d vs %d", a, b)
	}
	if a == FriendKey("owner@example.com", "other") {
		t.Fatal("different friends collided")
	}
}
