// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestAtomicWriteJSONAndReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.json")

	type config struct {
		ServiceName string `json:"serviceName"`
		Endpoint    string `json:"endpoint"`
	}
	in := config{ServiceName: "Northwind", Endpoint: "https://svc/$metadata"}

	if err := AtomicWriteJSON(path, in); err != nil {
		t.Fatalf("AtomicWriteJSON() error = %v", err)
	}

	var out config
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if out != in {
		t.Errorf("ReadJSON() = %+v, want %+v", out, in)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestReadJSONMissingFile(t *testing.T) {
	target := map[string]string{"keep": "me"}
	if err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &target); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if target["keep"] != "me" {
		t.Error("target should be unchanged for a missing file")
	}
}

func TestReadJSONInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	if err := ReadJSON(path, &v); err == nil || !strings.Contains(err.Error(), "failed to parse JSON") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestAtomicWriteJSONPermSecret(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := AtomicWriteJSONPerm(path, map[string]string{"a": "b"}, SecretFilePermission); err != nil {
		t.Fatalf("AtomicWriteJSONPerm() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != SecretFilePermission {
		t.Errorf("perm = %o, want %o", info.Mode().Perm(), SecretFilePermission)
	}
}

func TestAtomicWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := AtomicWriteFile(path, []byte("first"), FilePermission); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteFile(path, []byte("second"), FilePermission); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}
}

func TestAtomicWriteFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "out.txt")
	if err := AtomicWriteFile(path, []byte("x"), FilePermission); err == nil {
		t.Error("expected error when directory does not exist")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestCreateTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging")

	f, err := CreateTemp(dir, "metadata-*.xml")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	if filepath.Dir(f.Name()) != dir {
		t.Errorf("file created in %q, want %q", filepath.Dir(f.Name()), dir)
	}
	if !strings.HasSuffix(f.Name(), ".xml") {
		t.Errorf("unexpected name %q", f.Name())
	}
	if !FileExists(f.Name()) {
		t.Error("FileExists() = false for created file")
	}
}

func TestCreateTempRejectsTraversal(t *testing.T) {
	if _, err := CreateTemp("../outside", "x-*"); err == nil {
		t.Error("expected traversal to be rejected")
	}
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.xml")
	if err := os.WriteFile(path, []byte("<a/>"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists() error = %v", err)
	}
	if FileExists(path) {
		t.Error("file still exists")
	}
	if err := RemoveIfExists(path); err != nil {
		t.Errorf("second RemoveIfExists() error = %v", err)
	}
}
