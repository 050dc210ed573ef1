package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	content := fmt.Sprintf(`server:
  ip: "127.0.0.1"
  port: 0
log:
  log_level: "error"
  log_dir: %q
  log_file: "test.log"
storage:
  dsn: "file:bootstrap_test?mode=memory&cache=shared"
`, tmp)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BOTDASH_CONFIG", path)
	t.Setenv("BOTDASH_SESSION_SECRET", "bootstrap-test-secret")
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"observability:setup-hooks",
		"storage:open-database",
		"cache:init-store",
		"auth:init-tokens",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestInitGraphDependenciesAreSatisfiable(t *testing.T) {
	seen := make(map[string]struct{})
	for _, step := range InitGraph() {
		for _, dep := range step.DependsOn {
			if _, ok := seen[dep]; !ok {
				t.Fatalf("step %s depends on %s before it completes", step.ID, dep)
			}
		}
		seen[step.ID] = struct{}{}
	}
}

func TestExecuteInitGraph(t *testing.T) {
	writeTestConfig(t)

	state := &appState{}
	if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	if state.config == nil {
		t.Fatal("config is nil after init")
	}
	if state.logger == nil {
		t.Fatal("logger is nil after init")
	}
	if state.db == nil {
		t.Fatal("database is nil after init")
	}
	if state.cacheStore == nil {
		t.Fatal("cache store is nil after init")
	}
	if state.tokens == nil {
		t.Fatal("session tokens are nil after init")
	}
	if state.observabilityShutdown == nil {
		t.Fatal("observability shutdown hook not set")
	}
	defer state.logger.Close()
	defer state.cacheStore.Close(context.Background())
	defer state.observabilityShutdown(context.Background())
}

func TestExecuteInitStepsRejectsUnmetDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "b",
			DependsOn: []string{"a"},
			Execute:   func(context.Context, *appState) error { return nil },
		},
	}
	if err := executeInitSteps(context.Background(), steps, &appState{}); err == nil {
		t.Fatal("expected dependency error, got nil")
	}
}

func TestExecuteInitStepsRequiresSecret(t *testing.T) {
	writeTestConfig(t)
	t.Setenv("BOTDASH_SESSION_SECRET", "")

	state := &appState{}
	err := executeInitSteps(context.Background(), InitGraph(), state)
	if err == nil {
		t.Fatal("expected missing-secret error, got nil")
	}
	if state.logger != nil {
		state.logger.Close()
	}
	if state.cacheStore != nil {
		state.cacheStore.Close(context.Background())
	}
}
