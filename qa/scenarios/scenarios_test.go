package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/dispatchsim/core/sim"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestExpectedCheck(t *testing.T) {
	n, w, r := 3, 1.0, 0
	e := Expected{Serviced: &n, Reason: "exhausted", AvgWait: &w, Tolerance: 0.1, MaxAvgWait: 2, MaxRejections: &r}

	ok := sim.Stats{Serviced: 3, WaitSum: 3.15, Reason: sim.StopExhausted}
	if msgs := e.Check(ok); len(msgs) != 0 {
		t.Fatalf("unexpected mismatches: %v", msgs)
	}
	bad := sim.Stats{Serviced: 2, WaitSum: 5, Reason: sim.StopMaxTime, Rejections: 1}
	if msgs := e.Check(bad); len(msgs) != 5 {
		t.Fatalf("expected 5 mismatches, got %v", msgs)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte(":"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected unmarshal error")
	}
	unnamed := filepath.Join(dir, "unnamed.yaml")
	if err := os.WriteFile(unnamed, []byte("simulation:\n  seed: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(unnamed); err == nil {
		t.Fatal("expected missing name error")
	}
}
