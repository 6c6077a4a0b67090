package core

import (
	"errors"
	"slices"
	"sync"
	"testing"
)

func TestNewRegistryDefaults(t *testing.T) {
	reg := NewRegistry()
	want := []Category{"Food", "Transportation", "Entertainment", "Shopping", "Bills", "Other"}
	if got := reg.List(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNewRegistryDedupes(t *testing.T) {
	reg := NewRegistry("Food", " Food ", "", "Travel", "food")
	want := []Category{"Food", "Travel", "food"}
	if got := reg.List(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRegistryValidate(t *testing.T) {
	reg := NewRegistry()
	cases := []struct {
		in   string
		want Category
		err  error
	}{
		{"Food", "Food", nil},
		{"  Bills ", "Bills", nil},
		{"food", "", ErrUnknownCategory},
		{"", "", ErrEmptyCategory},
		{"   ", "", ErrEmptyCategory},
		{"All", "", ErrUnknownCategory},
	}
	for _, tc := range cases {
		got, err := reg.Validate(tc.in)
		if !errors.Is(err, tc.err) || got != tc.want {
			t.Errorf("%q: expected (%q, %v), got (%q, %v)", tc.in, tc.want, tc.err, got, err)
		}
	}
}

func TestRegistryValidateSelector(t *testing.T) {
	reg := NewRegistry()
	for _, in := range []string{"", "All", " All "} {
		if got, err := reg.ValidateSelector(in); err != nil || got != AllCategories {
			t.Errorf("%q: expected All, got (%q, %v)", in, got, err)
		}
	}
	if _, err := reg.ValidateSelector("Unknown"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestRegistryValidateSet(t *testing.T) {
	reg := NewRegistry()

	if got, err := reg.ValidateSet(nil); err != nil || got != nil {
		t.Errorf("nil set: expected (nil, nil), got (%v, %v)", got, err)
	}
	if got, err := reg.ValidateSet([]Category{}); err != nil || got == nil || len(got) != 0 {
		t.Errorf("empty set: expected empty non-nil, got (%v, %v)", got, err)
	}
	got, err := reg.ValidateSet([]Category{" Food", "Bills"})
	if err != nil || !slices.Equal(got, []Category{"Food", "Bills"}) {
		t.Errorf("expected [Food Bills], got (%v, %v)", got, err)
	}
	if _, err := reg.ValidateSet([]Category{"Food", "Nope"}); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestRegistryAddRemove(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Add("Travel"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !reg.Has("Travel") || reg.Len() != 7 {
		t.Fatalf("expected Travel appended, got %v", reg.List())
	}
	if _, err := reg.Add("Travel"); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := reg.Add("All"); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected All to be reserved, got %v", err)
	}
	if _, err := reg.Add(" "); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected empty error, got %v", err)
	}

	if err := reg.Remove("Food"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if reg.Has("Food") {
		t.Fatal("Food still present")
	}
	if err := reg.Remove("Food"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected unknown error, got %v", err)
	}
}

func TestRegistryListIsCopy(t *testing.T) {
	reg := NewRegistry()
	list := reg.List()
	list[0] = "Changed"
	if reg.List()[0] != "Food" {
		t.Fatal("List exposed internal slice")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = reg.Add(string(rune('A' + i)))
		}(i)
		go func() {
			defer wg.Done()
			_ = reg.Has("Food")
			_ = reg.List()
		}()
	}
	wg.Wait()
	if reg.Len() != 26 {
		t.Fatalf("expected 26 categories, got %d", reg.Len())
	}
}
