package simulation

import (
	"context"
	"sort"
	"testing"

	"github.com/sentinel-infra/gridtwin/pkg/twin"
)

type fakeScenario struct {
	name string
}

func (s *fakeScenario) Name() string                                  { return s.name }
func (s *fakeScenario) Description() string                           { return "fake scenario" }
func (s *fakeScenario) Configure(params map[string]interface{}) error { return nil }
func (s *fakeScenario) Run(ctx context.Context, e *twin.Engine) error { return nil }
func (s *fakeScenario) Stop() error                                   { return nil }

func TestRegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register("drill", func() Scenario {
		return &fakeScenario{name: "drill"}
	})
	if err != nil {
		t.Fatalf("Failed to register scenario: %v", err)
	}

	scenario, err := registry.Get("drill")
	if err != nil {
		t.Fatalf("Failed to get scenario: %v", err)
	}
	if scenario.Name() != "drill" {
		t.Errorf("Expected scenario name drill, got %s", scenario.Name())
	}
}

func TestGetReturnsFreshInstances(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register("drill", func() Scenario {
		return &fakeScenario{name: "drill"}
	}); err != nil {
		t.Fatalf("Failed to register scenario: %v", err)
	}

	first, _ := registry.Get("drill")
	second, _ := registry.Get("drill")
	if first == second {
		t.Error("Expected each Get to return a new instance")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	registry := NewRegistry()
	factory := func() Scenario { return &fakeScenario{name: "drill"} }

	if err := registry.Register("drill", factory); err != nil {
		t.Fatalf("Failed to register scenario: %v", err)
	}
	if err := registry.Register("drill", factory); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}

func TestGetUnknown(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Get("missing"); err == nil {
		t.Error("Expected unknown scenario to fail")
	}
}

func TestList(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"cascade-sweep", "earthquake-drill"} {
		n := name
		if err := registry.Register(n, func() Scenario {
			return &fakeScenario{name: n}
		}); err != nil {
			t.Fatalf("Failed to register %s: %v", n, err)
		}
	}

	names := registry.List()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "cascade-sweep" || names[1] != "earthquake-drill" {
		t.Errorf("Unexpected scenario list: %v", names)
	}
}
