/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagecanvas/internal/config"
)

type noSecrets struct{}

func (noSecrets) Get(string, string) (string, error) { return "", errors.New("no keyring") }
func (noSecrets) Set(string, string, string) error { return nil }
func (noSecrets) Delete(string, string) error { return nil }

func setupConfig(t *testing.T) string {
	t.Helper()
	prev := config.SetSecretStore(noSecrets{})
	t.Cleanup(func() { config.SetSecretStore(prev) })
	dir := t.TempDir()
	cfg := `editor:
  view_mode: desktop
  show_grid: true
storage:
  driver: sqlite
  dsn: ` + filepath.ToSlash(filepath.Join(dir, "pages.sqlite")) + `
logging:
  level: error
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&app{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewReplayShowHistory(t *testing.T) {
	cfg := setupConfig(t)
	out, err := runCLI(t, "--config", cfg, "new", "Landing")
	if err != nil {
		t.Fatalf("new: %v (%s)", err, out)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		t.Fatalf("new printed no id")
	}

	gestures := filepath.Join(t.TempDir(), "build.yaml")
	src := `steps:
  - palette: {type: section, componentData: {structure: standard}}
    at: [500, 900]
  - palette: {type: button}
    at: [205, 340]
`
	if err := os.WriteFile(gestures, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	out, err = runCLI(t, "--config", cfg, "replay", id, gestures)
	if err != nil {
		t.Fatalf("replay: %v (%s)", err, out)
	}
	if !strings.Contains(out, "2 steps, 0 failed") {
		t.Fatalf("replay output: %s", out)
	}

	out, err = runCLI(t, "--config", cfg, "show", id)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "section") || !strings.Contains(out, "button") {
		t.Fatalf("show output: %s", out)
	}

	out, err = runCLI(t, "--config", cfg, "history", id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "add_element") || !strings.Contains(out, "add_child") {
		t.Fatalf("history output: %s", out)
	}
}

func TestReplayReportsScriptErrors(t *testing.T) {
	cfg := setupConfig(t)
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("steps:\n  - key: hyper+x\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	out, err := runCLI(t, "--config", cfg, "replay", "any", bad)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(out, "bad.yaml:2:") {
		t.Fatalf("missing position in %q", out)
	}
}

func TestShowUnknownPage(t *testing.T) {
	cfg := setupConfig(t)
	if _, err := runCLI(t, "--config", cfg, "show", "missing"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	out, err := runCLI(t, "--config", "/nonexistent/dir/config.yaml", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "PageCanvas ") {
		t.Fatalf("version output: %q", out)
	}
}
