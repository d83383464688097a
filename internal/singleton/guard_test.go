package singleton

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/containerd/errdefs"
)

func TestAcquireExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipe.lock")

	first, err := Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Release()

	_, err = Acquire(path)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Acquire err = %v, want ErrAlreadyRunning", err)
	}
	if !errdefs.IsAlreadyExists(err) {
		t.Fatalf("err = %v, want already-exists class", err)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pipe.lock")

	g, err := Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	if g.Path() != path {
		t.Fatalf("Path = %q, want %q", g.Path(), path)
	}
	if err := g.Release(); err != nil {
		t.Fatal(err)
	}
	if err := g.Release(); err != nil {
		t.Fatalf("second Release = %v, want nil", err)
	}

	again, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
	again.Release()
}

func TestAcquireConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipe.lock")

	const n = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		guards []*Guard
		lost   int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := Acquire(path)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				guards = append(guards, g)
			case errors.Is(err, ErrAlreadyRunning):
				lost++
			default:
				t.Errorf("Acquire: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(guards) != 1 || lost != n-1 {
		t.Fatalf("winners = %d, losers = %d; want 1 and %d", len(guards), lost, n-1)
	}
	guards[0].Release()
}
