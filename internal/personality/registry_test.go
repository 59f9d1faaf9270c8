package personality

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatalf("registry should be complete: %v", err)
	}
}

func TestResolve_CanonicalModes(t *testing.T) {
	for _, m := range Modes() {
		mode, profile, err := Resolve(string(m))
		if err != nil {
			t.Fatalf("mode %s should resolve: %v", m, err)
		}
		if mode != m {
			t.Errorf("mode %s resolved to %s", m, mode)
		}
		if profile.SystemPrompt == "" {
			t.Errorf("mode %s has empty system prompt", m)
		}
		if profile.Fallback == "" {
			t.Errorf("mode %s has empty fallback", m)
		}
	}
}

func TestResolve_LegacyAlias(t *testing.T) {
	mode, profile, err := Resolve("calculator")
	if err != nil {
		t.Fatalf("calculator alias should resolve: %v", err)
	}
	if mode != ModeStonks {
		t.Errorf("calculator should resolve to stonks, got %s", mode)
	}

	stonks, _ := Lookup(ModeStonks)
	if profile.SystemPrompt != stonks.SystemPrompt {
		t.Error("alias should share the stonks profile")
	}
}

func TestResolve_UnknownMode(t *testing.T) {
	for _, raw := range []string{"", "chaos", "ROAST", "normal "} {
		if _, _, err := Resolve(raw); err == nil {
			t.Errorf("mode %q should be rejected", raw)
		}
	}
}

func TestAccepted_NamesAllModes(t *testing.T) {
	accepted := Accepted()
	for _, m := range Modes() {
		if !strings.Contains(accepted, string(m)) {
			t.Errorf("accepted values %q missing %s", accepted, m)
		}
	}
}

func TestSampling_ModeBias(t *testing.T) {
	_, roast, _ := Resolve("roast")
	_, stonks, _ := Resolve("stonks")
	_, normal, _ := Resolve("normal")

	// The comedic mode samples hotter than the analytical one.
	if roast.Sampling.Temperature <= stonks.Sampling.Temperature {
		t.Errorf("roast temperature %v should exceed stonks %v",
			roast.Sampling.Temperature, stonks.Sampling.Temperature)
	}
	if normal.Sampling.Temperature <= stonks.Sampling.Temperature {
		t.Errorf("normal temperature %v should exceed stonks %v",
			normal.Sampling.Temperature, stonks.Sampling.Temperature)
	}

	for _, p := range []Profile{roast, stonks, normal} {
		if p.Sampling.MaxTokens != 200 {
			t.Errorf("expected 200 max tokens, got %d", p.Sampling.MaxTokens)
		}
	}
}

func TestFallbacks_Distinct(t *testing.T) {
	seen := make(map[string]Mode)
	for _, m := range Modes() {
		profile, _ := Lookup(m)
		if prev, dup := seen[profile.Fallback]; dup {
			t.Errorf("modes %s and %s share a fallback", prev, m)
		}
		seen[profile.Fallback] = m
	}
}
