package pool

import (
	"context"
	"net"
	"testing"
	"time"
)

// fakeDial returns one side of an in-memory net.Pipe; the other side is
// left unused since nothing reads/writes through it in these tests.
func fakeDial(ctx context.Context, origin string, cfg Config) (net.Conn, error) {
	client, server := net.Pipe()
	go func() {
		<-ctx.Done()
	}()
	_ = server
	return client, nil
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	r := NewRegistry(fakeDial, nil)
	conn, err := r.Borrow(context.Background(), "origin-a")
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if conn == nil {
		t.Fatal("expected a connection")
	}
	r.Return(conn)

	again, err := r.Borrow(context.Background(), "origin-a")
	if err != nil {
		t.Fatalf("Borrow again: %v", err)
	}
	if again != conn {
		t.Fatal("expected the returned connection to be reused")
	}
}

func TestDiscardFreesSlot(t *testing.T) {
	r := NewRegistry(fakeDial, nil)
	r.SetConfig("origin-a", Config{MaxPoolSize: 1, BorrowTimeout: 30 * time.Millisecond, MaxIdleTime: time.Minute, ConnectTimeout: time.Second})

	conn, err := r.Borrow(context.Background(), "origin-a")
	if err != nil || conn == nil {
		t.Fatalf("Borrow: %v, %v", conn, err)
	}
	r.Discard(conn)

	fresh, err := r.Borrow(context.Background(), "origin-a")
	if err != nil || fresh == nil {
		t.Fatalf("Borrow after discard: %v, %v", fresh, err)
	}
	if fresh == conn {
		t.Fatal("expected a fresh connection after discard, got the same handle")
	}
}

// Scenario 5 (spec): max_pool_size=1, borrow_timeout=30ms. Borrow once;
// a second borrow returns none after >=25ms. After a return, a third
// borrow yields the same handle.
func TestPoolContention(t *testing.T) {
	r := NewRegistry(fakeDial, nil)
	r.SetConfig("origin-a", Config{
		MaxPoolSize:    1,
		BorrowTimeout:  30 * time.Millisecond,
		MaxIdleTime:    time.Minute,
		ConnectTimeout: time.Second,
	})

	first, err := r.Borrow(context.Background(), "origin-a")
	if err != nil || first == nil {
		t.Fatalf("first Borrow: %v, %v", first, err)
	}

	start := time.Now()
	second, err := r.Borrow(context.Background(), "origin-a")
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("second Borrow: %v", err)
	}
	if second != nil {
		t.Fatal("expected second Borrow to time out with no connection")
	}
	if elapsed < 25*time.Millisecond {
		t.Fatalf("second Borrow returned after %v, want >= 25ms", elapsed)
	}

	r.Return(first)

	third, err := r.Borrow(context.Background(), "origin-a")
	if err != nil || third == nil {
		t.Fatalf("third Borrow: %v, %v", third, err)
	}
	if third != first {
		t.Fatal("expected third Borrow to reuse the returned handle")
	}
}

func TestIdleEvictionClosesStaleConnections(t *testing.T) {
	r := NewRegistry(fakeDial, nil)
	r.SetConfig("origin-a", Config{
		MaxPoolSize:    2,
		BorrowTimeout:  30 * time.Millisecond,
		MaxIdleTime:    10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})

	conn, err := r.Borrow(context.Background(), "origin-a")
	if err != nil || conn == nil {
		t.Fatalf("Borrow: %v, %v", conn, err)
	}
	r.Return(conn)

	time.Sleep(20 * time.Millisecond)

	fresh, err := r.Borrow(context.Background(), "origin-a")
	if err != nil || fresh == nil {
		t.Fatalf("Borrow after idle eviction: %v, %v", fresh, err)
	}
	if fresh == conn {
		t.Fatal("expected idle eviction to discard the stale connection")
	}
}
