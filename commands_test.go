package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"babylon/recordstore/model"
	"babylon/recordstore/records"
	"babylon/recordstore/repository"
	"babylon/recordstore/storage"
)

func newRecordCmd(stdin string) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().StringP("file", "f", "", "")
	cmd.SetIn(strings.NewReader(stdin))
	return cmd
}

func TestReadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	if err := os.WriteFile(path, []byte(`{"name": "Ann"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name     string
		args     []string
		file     string
		stdin    string
		wantName string
	}{
		{name: "argument", args: []string{`{"name": "Bob"}`}, wantName: "Bob"},
		{name: "file", file: path, wantName: "Ann"},
		{name: "stdin", stdin: `{"name": "Cy"}`, wantName: "Cy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRecordCmd(tt.stdin)
			if tt.file != "" {
				if err := cmd.Flags().Set("file", tt.file); err != nil {
					t.Fatalf("set flag: %v", err)
				}
			}
			raw, err := readRecord(cmd, tt.args)
			if err != nil {
				t.Fatalf("readRecord: %v", err)
			}
			if raw["name"] != tt.wantName {
				t.Errorf("name = %v, want %s", raw["name"], tt.wantName)
			}
		})
	}
}

func TestReadRecord_KeepsNumbers(t *testing.T) {
	raw, err := readRecord(newRecordCmd(""), []string{`{"rewardPoints": 10}`})
	if err != nil {
		t.Fatalf("readRecord: %v", err)
	}
	if _, ok := raw["rewardPoints"].(json.Number); !ok {
		t.Errorf("rewardPoints is %T, want json.Number", raw["rewardPoints"])
	}
}

func TestReadRecord_RejectsNonObject(t *testing.T) {
	if _, err := readRecord(newRecordCmd(""), []string{`[1, 2]`}); err == nil {
		t.Fatal("expected an error for a JSON array")
	}
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	writeErr := errors.New("boom")
	err := printResult(cmd, records.WriteResult{Status: records.StatusError, Message: "failed", Err: writeErr})
	if !errors.Is(err, writeErr) {
		t.Errorf("printResult returned %v, want the write error", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if decoded["status"] != records.StatusError || decoded["message"] != "failed" {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	adapter := storage.NewAdapter(storage.NewMemoryStore(), storage.Options{
		FallbackDir: t.TempDir(),
		Sleep:       func(context.Context, time.Duration) error { return nil },
	})
	return &app{adapter: adapter, service: records.New(repository.New(adapter))}
}

func runFind(t *testing.T, a *app, flags map[string]string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := findCmd(a)
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	for name, value := range flags {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set --%s: %v", name, err)
		}
	}
	err := cmd.RunE(cmd, nil)
	return out.String(), err
}

func TestFindCmd(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	ann := a.service.WriteCustomer(ctx, model.Raw{"name": "Ann", "email": "ann@x.com", "category": "active"})
	bob := a.service.WriteCustomer(ctx, model.Raw{"name": "Bob", "category": "lead"})
	if !ann.OK() || !bob.OK() {
		t.Fatalf("seed writes failed: %v, %v", ann.Err, bob.Err)
	}

	out, err := runFind(t, a, map[string]string{"email": "ANN@x.com"})
	if err != nil || !strings.Contains(out, ann.ID) {
		t.Errorf("find --email: %v, %s", err, out)
	}

	out, err = runFind(t, a, map[string]string{"id": bob.ID})
	if err != nil || !strings.Contains(out, `"Bob"`) {
		t.Errorf("find --id: %v, %s", err, out)
	}

	out, err = runFind(t, a, map[string]string{"category": "current"})
	if err != nil {
		t.Fatalf("find --category: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0]["id"] != ann.ID {
		t.Errorf("find --category current returned %s", out)
	}

	if _, err := runFind(t, a, map[string]string{"category": "vip"}); err == nil {
		t.Error("expected an error for an unrecognized category")
	}
	if _, err := runFind(t, a, map[string]string{"email": "nobody@x.com"}); err == nil {
		t.Error("expected an error for an unknown email")
	}
	if _, err := runFind(t, a, nil); err == nil {
		t.Error("expected an error without a lookup flag")
	}
}
