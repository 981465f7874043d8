package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/ports"
)

// ProfileSourceContractTest is a reusable test suite that verifies if an adapter complies with ports.ProfileSource.
func ProfileSourceContractTest(t *testing.T, source ports.ProfileSource, expected map[string]domain.Profile) {
	t.Helper()
	ctx := context.Background()

	t.Run("Profile_Success", func(t *testing.T) {
		for typ, want := range expected {
			got, err := source.Profile(ctx, typ)
			if err != nil {
				t.Fatalf("unexpected error getting profile %s: %v", typ, err)
			}
			if got.Type != want.Type {
				t.Errorf("type mismatch for %s. got %q, want %q", typ, got.Type, want.Type)
			}
			if got.BaseResistTime != want.BaseResistTime {
				t.Errorf("base resist mismatch for %s. got %v, want %v", typ, got.BaseResistTime, want.BaseResistTime)
			}
			if got.Mass != want.Mass {
				t.Errorf("mass mismatch for %s. got %v, want %v", typ, got.Mass, want.Mass)
			}
		}
	})

	t.Run("Profile_NotFound", func(t *testing.T) {
		_, err := source.Profile(ctx, "non-existent-profile")
		if !errors.Is(err, domain.ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("ListProfiles", func(t *testing.T) {
		types, err := source.ListProfiles(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing profiles: %v", err)
		}

		if len(types) != len(expected) {
			t.Errorf("expected %d profiles, got %d", len(expected), len(types))
		}

		lookup := make(map[string]bool)
		for _, typ := range types {
			lookup[typ] = true
		}

		for typ := range expected {
			if !lookup[typ] {
				t.Errorf("profile %s missing from list", typ)
			}
		}
	})
}
