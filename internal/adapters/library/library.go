// Package library implements the file-backed reference and document
// stores. Each project's material lives under
// <root>/<projectID>/references and <root>/<projectID>/documents as
// plain markdown or text files; summaries are cached per project and
// invalidated by a filesystem watcher.
package library

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
)

// summaryLineLimit caps how much of a file becomes its summary.
const summaryLineLimit = 5

// Library serves reference and document summaries from disk. It
// implements core.ReferenceStore and core.DocumentStore.
type Library struct {
	root   string
	logger *logging.Logger

	mu    sync.RWMutex
	cache map[string]*projectEntry

	watcher     *fsnotify.Watcher
	watchedDirs map[string]bool
	stopWatcher chan struct{}
}

type projectEntry struct {
	references []core.ReferenceSummary
	documents  []core.DocumentSummary
}

// New creates a library rooted at dir and starts the change watcher.
// The watcher is best effort: when it cannot start, the library still
// works with per-fetch cache misses after invalidation never firing,
// so Invalidate remains available to callers.
func New(root string, logger *logging.Logger) (*Library, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}

	l := &Library{
		root:        root,
		logger:      logger,
		cache:       make(map[string]*projectEntry),
		watchedDirs: make(map[string]bool),
		stopWatcher: make(chan struct{}),
	}
	l.startWatcher()
	return l, nil
}

// FetchForProject implements core.ReferenceStore.
func (l *Library) FetchForProject(ctx context.Context, projectID string) ([]core.ReferenceSummary, error) {
	entry, err := l.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return entry.references, nil
}

// Documents returns the core.DocumentStore view of the same library.
func (l *Library) Documents() core.DocumentStore {
	return documentView{l}
}

type documentView struct{ l *Library }

func (v documentView) FetchForProject(ctx context.Context, projectID string) ([]core.DocumentSummary, error) {
	entry, err := v.l.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return entry.documents, nil
}

// Invalidate drops a project's cached summaries.
func (l *Library) Invalidate(projectID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, projectID)
}

// Close stops the watcher.
func (l *Library) Close() error {
	close(l.stopWatcher)
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func (l *Library) project(ctx context.Context, projectID string) (*projectEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	entry, ok := l.cache[projectID]
	l.mu.RUnlock()
	if ok {
		return entry, nil
	}

	entry = &projectEntry{
		references: l.loadReferences(projectID),
		documents:  l.loadDocuments(projectID),
	}

	l.mu.Lock()
	l.cache[projectID] = entry
	l.mu.Unlock()

	l.watchProject(projectID)
	return entry, nil
}

func (l *Library) loadReferences(projectID string) []core.ReferenceSummary {
	var out []core.ReferenceSummary
	for _, f := range listTextFiles(filepath.Join(l.root, projectID, "references")) {
		summary, err := summarizeFile(f)
		if err != nil {
			l.logger.Warn("skipping unreadable reference", "path", f, "error", err)
			continue
		}
		out = append(out, core.ReferenceSummary{
			ID:      fileID(f),
			Title:   fileTitle(f),
			Summary: summary,
		})
	}
	return out
}

func (l *Library) loadDocuments(projectID string) []core.DocumentSummary {
	var out []core.DocumentSummary
	for _, f := range listTextFiles(filepath.Join(l.root, projectID, "documents")) {
		summary, err := summarizeFile(f)
		if err != nil {
			l.logger.Warn("skipping unreadable document", "path", f, "error", err)
			continue
		}
		out = append(out, core.DocumentSummary{
			ID:      fileID(f),
			Section: fileTitle(f),
			Summary: summary,
		})
	}
	return out
}

// startWatcher begins watching for library changes. Failure to start is
// logged and tolerated.
func (l *Library) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.logger.Warn("library watcher unavailable, caching without invalidation", "error", err)
		return
	}
	l.watcher = watcher
	_ = watcher.Add(l.root)

	go func() {
		for {
			select {
			case <-l.stopWatcher:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				l.handleEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("library watcher error", "error", err)
			}
		}
	}()
}

// handleEvent invalidates the project a changed path belongs to.
func (l *Library) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(l.root, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	projectID := strings.Split(filepath.ToSlash(rel), "/")[0]
	l.Invalidate(projectID)
	l.logger.Debug("library cache invalidated", "project_id", projectID, "path", event.Name)
}

// watchProject adds a project's subdirectories to the watcher.
func (l *Library) watchProject(projectID string) {
	if l.watcher == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sub := range []string{"references", "documents"} {
		dir := filepath.Join(l.root, projectID, sub)
		if l.watchedDirs[dir] {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := l.watcher.Add(dir); err == nil {
			l.watchedDirs[dir] = true
		}
	}
}

func listTextFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".md", ".txt":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files
}

// summarizeFile returns the first few non-empty lines of a file.
func summarizeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == summaryLineLimit {
			break
		}
	}
	return strings.Join(lines, " "), nil
}

func fileID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// fileTitle derives a human title from the file name: "api-design.md"
// becomes "api design".
func fileTitle(path string) string {
	name := fileID(path)
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return name
}
