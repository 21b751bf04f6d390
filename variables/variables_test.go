package variables

import (
	"context"
	"reflect"
	"strconv"
	"sync"
	"testing"
)

func TestStoreBasics(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryRepo(), "u1")

	if _, ok, _ := store.Get(ctx, "missing"); ok {
		t.Error("unset variable should not be found")
	}
	if err := store.Set(ctx, "greeting", "hello"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := store.Get(ctx, "greeting")
	if err != nil || !ok || v != "hello" {
		t.Errorf("Get(greeting) = %q,%v,%v", v, ok, err)
	}
}

func TestStoresAreUserScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	a := NewStore(repo, "u1")
	b := NewStore(repo, "u2")

	_ = a.Set(ctx, "x", "1")
	if _, ok, _ := b.Get(ctx, "x"); ok {
		t.Error("u2 must not see u1's variables")
	}
}

func TestSetExistingIsUpdateOnly(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryRepo(), "u1")

	if ok, _ := store.SetExisting(ctx, "counter", "5"); ok {
		t.Fatal("SetExisting on a missing name must report false")
	}
	if _, found, _ := store.Get(ctx, "counter"); found {
		t.Fatal("SetExisting must not create variables")
	}

	_ = store.Set(ctx, "counter", "1")
	if ok, _ := store.SetExisting(ctx, "counter", "5"); !ok {
		t.Fatal("SetExisting on an existing name must report true")
	}
	if v, _, _ := store.Get(ctx, "counter"); v != "5" {
		t.Errorf("value = %q, want 5", v)
	}
}

func TestAddInt(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryRepo(), "u1")

	if ok, _ := store.AddInt(ctx, "missing", 1); ok {
		t.Fatal("AddInt on a missing name must be a no-op")
	}

	_ = store.Set(ctx, "count", "10")
	if _, err := store.AddInt(ctx, "count", -3); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := store.Get(ctx, "count"); v != "7" {
		t.Errorf("count = %q, want 7", v)
	}

	// non-numeric values count as 0
	_ = store.Set(ctx, "word", "banana")
	_, _ = store.AddInt(ctx, "word", 4)
	if v, _, _ := store.Get(ctx, "word"); v != "4" {
		t.Errorf("word = %q, want 4", v)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryRepo(), "u1")
	_ = store.Set(ctx, "count", "0")

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = store.AddInt(ctx, "count", 1)
		}()
	}
	wg.Wait()

	v, _, _ := store.Get(ctx, "count")
	if v != strconv.Itoa(n) {
		t.Errorf("count = %q after %d concurrent increments, want %d", v, n, n)
	}
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryRepo(), "u1")
	_ = store.Set(ctx, "keep", "old")
	_ = store.Set(ctx, "drop", "x")

	next := []Variable{
		{Name: "keep", Value: "new"},
		{Name: "added", Value: "1"},
	}
	if err := store.Replace(ctx, next); err != nil {
		t.Fatal(err)
	}

	got, err := store.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []Variable{
		{Name: "added", Value: "1"},
		{Name: "keep", Value: "new"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("All() after Replace = %+v, want %+v", got, want)
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"-7", -7},
		{"", 0},
		{"banana", 0},
		{"3.5", 0},
	}
	for _, tt := range tests {
		if got := ParseInt(tt.in); got != tt.want {
			t.Errorf("ParseInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
