/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the host process into a report file plus a
// copy of the page being edited.
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	applog "pagecanvas/internal/log"
	"pagecanvas/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

var (
	dirMu     sync.Mutex
	reportDir string
)

// SetReportDir sets where reports are written. Empty means the temp dir.
func SetReportDir(dir string) {
	dirMu.Lock()
	reportDir = dir
	dirMu.Unlock()
}

func dir() string {
	dirMu.Lock()
	defer dirMu.Unlock()
	if reportDir == "" {
		return os.TempDir()
	}
	return reportDir
}

// Recover captures a panic, logs it with the stack, writes a crash report
// and saves the document returned by snapshot (if any) next to it.
//
// Usage: defer crash.Recover(ctl.Snapshot)
func Recover(snapshot func() []byte) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	doc := safeSnapshot(snapshot)
	reportPath, err := writeReport(r, stack, doc)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	// Exit with a non-zero code to indicate failure in CLI context.
	exitFn(2)
}

// safeSnapshot calls fn, tolerating a nil fn and a second panic inside it.
func safeSnapshot(fn func() []byte) (doc []byte) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			applog.WithComponent("crash").Error("snapshot panicked", slog.Any("panic", r))
			doc = nil
		}
	}()
	return fn()
}

func writeReport(panicVal any, stack, doc []byte) (string, error) {
	d := dir()
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(d, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "PageCanvas Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if len(doc) > 0 {
		docPath := filepath.Join(d, fmt.Sprintf("crash-%s.page.json", stamp))
		if err := writeDoc(docPath, doc); err != nil {
			_, _ = fmt.Fprintf(&buf, "Document: not saved (%v)\n", err)
		} else {
			_, _ = fmt.Fprintf(&buf, "Document: %s\n", docPath)
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	return path, nil
}

func writeDoc(path string, doc []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, doc, "", "  "); err != nil {
		// keep the raw bytes when they are not valid JSON
		out.Reset()
		out.Write(doc)
	}
	return os.WriteFile(path, out.Bytes(), 0o644)
}
