// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"encoding/json"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/netsim/internal/logging"
)

var log = logging.WithComponent("config")

// Watcher hot-reloads a File when its backing path changes on disk, logging
// a unified diff of the canonicalized config on every reload that actually
// changes something (SPEC_FULL.md §0.3).
type Watcher struct {
	file *File
	fsw  *fsnotify.Watcher
	stop chan struct{}
}

// Watch starts watching f.Path for changes. onReload is invoked with the
// freshly reloaded File after every change that alters the parsed config;
// no-op filesystem events (same content rewritten) are suppressed.
func Watch(f *File, onReload func(*File)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(f.Path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{file: f, fsw: fsw, stop: make(chan struct{})}
	go w.loop(onReload)
	return w, nil
}

func (w *Watcher) loop(onReload func(*File)) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleEvent(onReload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("config watch error")
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(onReload func(*File)) {
	before := canonicalize(w.file.Config)
	changed, err := w.file.Reload()
	if err != nil {
		log.WithError(err).Warn("config reload failed, keeping previous config")
		return
	}
	if !changed {
		return
	}
	after := canonicalize(w.file.Config)
	log.Info("config reloaded", "diff", diff(before, after))
	if onReload != nil {
		onReload(w.file)
	}
}

// Close stops watching and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	close(w.stop)
	return w.fsw.Close()
}

// canonicalize renders cfg as indented JSON, a stable textual form to diff.
func canonicalize(cfg *Config) string {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func diff(before, after string) string {
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "previous",
		ToFile:   "reloaded",
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
