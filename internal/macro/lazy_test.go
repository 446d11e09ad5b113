package macro

import (
	"errors"
	"sync"
	"testing"
)

func TestRef(t *testing.T) {
	t.Run("loads once", func(t *testing.T) {
		calls := 0
		r := NewRef("numbers", func() ([]int, error) {
			calls++
			return []int{1, 2, 3}, nil
		})
		if calls != 0 {
			t.Fatalf("expected no load before first access, got %d", calls)
		}
		first, err := r.Load()
		if err != nil {
			t.Fatal(err)
		}
		for range 5 {
			got, err := r.Load()
			if err != nil {
				t.Fatal(err)
			}
			if &got[0] != &first[0] {
				t.Fatal("expected the cached slice to be returned")
			}
		}
		if calls != 1 {
			t.Fatalf("expected 1 load, got %d", calls)
		}
	})

	t.Run("caches failure", func(t *testing.T) {
		errBoom := errors.New("boom")
		calls := 0
		r := NewRef("failing", func() (string, error) {
			calls++
			return "", errBoom
		})
		for range 3 {
			_, err := r.Load()
			if !errors.Is(err, ErrHostUnavailable) {
				t.Fatalf("expected ErrHostUnavailable, got %v", err)
			}
			if !errors.Is(err, errBoom) {
				t.Fatalf("expected the loader error in the chain, got %v", err)
			}
		}
		if calls != 1 {
			t.Fatalf("expected 1 load, got %d", calls)
		}
	})

	t.Run("not wired", func(t *testing.T) {
		var nilRef *Ref[int]
		if _, err := nilRef.Load(); !errors.Is(err, ErrHostUnavailable) {
			t.Fatalf("expected ErrHostUnavailable, got %v", err)
		}
		if _, err := NewRef[int]("empty", nil).Load(); !errors.Is(err, ErrHostUnavailable) {
			t.Fatalf("expected ErrHostUnavailable, got %v", err)
		}
	})

	t.Run("concurrent first access", func(t *testing.T) {
		var mu sync.Mutex
		calls := 0
		r := NewRef("shared", func() (int, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return 42, nil
		})
		var wg sync.WaitGroup
		for range 16 {
			wg.Go(func() {
				if v, err := r.Load(); err != nil || v != 42 {
					t.Errorf("expected 42, got %d, %v", v, err)
				}
			})
		}
		wg.Wait()
		if calls != 1 {
			t.Fatalf("expected 1 load, got %d", calls)
		}
	})
}
