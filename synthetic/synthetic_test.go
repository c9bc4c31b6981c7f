package synthetic_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"babylon/recordstore/records"
	"babylon/recordstore/repository"
	"babylon/recordstore/storage"
	"babylon/recordstore/synthetic"
)

func TestGenerateSyntheticData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "synthetic")

	paths, err := synthetic.GenerateSyntheticData(10, dir, 42)
	if err != nil {
		t.Fatalf("GenerateSyntheticData failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %v", paths)
	}

	customers, err := os.ReadFile(filepath.Join(dir, synthetic.CustomersFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(customers)), "\n")
	if len(lines) != 10 {
		t.Errorf("expected 10 customer lines, got %d", len(lines))
	}

	financials, err := os.ReadFile(filepath.Join(dir, synthetic.FinancialsFile))
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(financials, &decoded); err != nil {
		t.Fatalf("financials file is not a JSON array: %v", err)
	}
	if len(decoded) != 10 {
		t.Errorf("expected 10 financial records, got %d", len(decoded))
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := synthetic.NewGenerator(7).Customers(6)
	b := synthetic.NewGenerator(7).Customers(6)
	if a[0]["email"] != b[0]["email"] || a[3]["name"] != b[3]["name"] {
		t.Error("expected the same seed to produce the same records")
	}
	if _, ok := a[5]["Email"]; !ok {
		t.Errorf("expected record 5 to repeat an earlier email, got %v", a[5])
	}
}

func TestGenerateAndPersist_Merges(t *testing.T) {
	adapter := storage.NewAdapter(storage.NewMemoryStore(), storage.Options{
		FallbackDir: t.TempDir(),
		Sleep:       func(context.Context, time.Duration) error { return nil },
	})
	svc := records.New(repository.New(adapter))
	ctx := context.Background()

	written, rejected := synthetic.GenerateAndPersistSyntheticData(ctx, svc, 10, 1)
	if written != 20 || rejected != 0 {
		t.Errorf("expected 20 written and 0 rejected, got %d, %d", written, rejected)
	}

	snapshot, err := svc.ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Record 5 repeats an earlier email and merges instead of adding.
	if len(snapshot.Customers) != 9 {
		t.Errorf("expected 9 distinct customers, got %d", len(snapshot.Customers))
	}
	if len(snapshot.Financials) != 10 {
		t.Errorf("expected 10 financial records, got %d", len(snapshot.Financials))
	}
	for _, c := range snapshot.Customers {
		if c.Record.Email == nil || !strings.HasSuffix(*c.Record.Email, "@example.com") {
			t.Errorf("unexpected customer %+v", c.Record)
		}
	}
}

func TestGenerateSyntheticData_SameSeedSameFiles(t *testing.T) {
	dirA := filepath.Join(t.TempDir(), "a")
	dirB := filepath.Join(t.TempDir(), "b")
	if _, err := synthetic.GenerateSyntheticData(8, dirA, 42); err != nil {
		t.Fatal(err)
	}
	if _, err := synthetic.GenerateSyntheticData(8, dirB, 42); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{synthetic.CustomersFile, synthetic.FinancialsFile} {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(filepath.Join(dirB, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("%s differs between runs with the same seed", name)
		}
	}
}
