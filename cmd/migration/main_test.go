package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{name: "default", want: 1},
		{name: "explicit", args: []string{" 3 "}, want: 3},
		{name: "zero", args: []string{"0"}, wantErr: true},
		{name: "not a number", args: []string{"two"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseSteps(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSteps: %v", err)
			}
			if got != tc.want {
				t.Fatalf("parseSteps() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestParseVersionAndTarget(t *testing.T) {
	if v, err := parseVersion("1776000000"); err != nil || v != 1776000000 {
		t.Fatalf("parseVersion() = %d, %v", v, err)
	}
	if _, err := parseVersion("-1"); err == nil {
		t.Fatalf("expected negative version error")
	}
	if v, err := parseTarget("1776000000"); err != nil || v != 1776000000 {
		t.Fatalf("parseTarget() = %d, %v", v, err)
	}
	if _, err := parseTarget("-1"); err == nil {
		t.Fatalf("expected negative target error")
	}
}

func TestResolveMigrationsDir_PrefersEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MIGRATIONS_DIR", dir)

	got, err := resolveMigrationsDir()
	if err != nil {
		t.Fatalf("resolveMigrationsDir: %v", err)
	}
	want, _ := filepath.Abs(dir)
	if got != want {
		t.Fatalf("resolveMigrationsDir() = %q, want %q", got, want)
	}
}

func TestResolveMigrationsDir_SkipsFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("MIGRATIONS_DIR", file)
	t.Setenv("MIGRATIONS_PATH", "")

	got, err := resolveMigrationsDir()
	if err == nil && got == file {
		t.Fatalf("expected a regular file to be skipped")
	}
}

func TestWithMigrator_RequiresDBURL(t *testing.T) {
	t.Setenv("DB_URL", " ")
	err := withMigrator(nil)
	if err == nil || err.Error() != "DB_URL is required" {
		t.Fatalf("unexpected error: %v", err)
	}
}
