// Package inbox turns files dropped into a directory into archived items.
//
// Text files become notes, .url files (or text holding a single URL) become
// links and images are uploaded as assets referenced by an image item.
// Captured files are moved into a .captured subdirectory.
package inbox

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/stash/pkg/core"
)

// CapturedDir receives the files already captured.
const CapturedDir = ".captured"

// DefaultInclude selects the files captured when Config.Include is empty.
var DefaultInclude = []string{"*.{md,txt,url}", "*.{jpg,jpeg,png,gif,webp,svg}"}

// DefaultIgnore skips hidden, backup and partial files.
var DefaultIgnore = []string{".*", "*~", "*.{tmp,part,crdownload}"}

// ErrSkipped is returned for files that are not captured.
var ErrSkipped = errors.New("file skipped")

// Sink receives captured items. *storage.Coordinator implements it.
type Sink interface {
	Save(ctx context.Context, it core.Item) error
	UploadAsset(ctx context.Context, data []byte, name string) (string, error)
}

// Config holds the inbox configuration.
type Config struct {
	Dir     string
	Include []string
	Ignore  []string
	// Tags are added to every captured item.
	Tags     []string
	Debounce time.Duration
	// Keep leaves captured files in place instead of moving them.
	Keep   bool
	Logger *slog.Logger
	// OnCapture is called after each successful capture.
	OnCapture func(core.Item)
	// ErrorHandler receives capture failures of the watcher.
	ErrorHandler func(error)
}

// Inbox captures files from one directory.
type Inbox struct {
	config Config
	sink   Sink
}

// New creates an inbox. Patterns are validated eagerly.
func New(sink Sink, cfg Config) (*Inbox, error) {
	if cfg.Dir == "" {
		return nil, errors.New("inbox directory is required")
	}
	if len(cfg.Include) == 0 {
		cfg.Include = DefaultInclude
	}
	if cfg.Ignore == nil {
		cfg.Ignore = DefaultIgnore
	}
	for _, p := range append(append([]string{}, cfg.Include...), cfg.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.Tags = core.NormalizeTags(cfg.Tags)
	return &Inbox{config: cfg, sink: sink}, nil
}

// Dir returns the watched directory.
func (in *Inbox) Dir() string {
	return in.config.Dir
}

// Matches reports whether a file name is selected by the include patterns
// and not rejected by the ignore patterns. Matching is case-insensitive.
func (in *Inbox) Matches(name string) bool {
	name = strings.ToLower(filepath.Base(name))
	for _, p := range in.config.Ignore {
		if ok, _ := doublestar.Match(strings.ToLower(p), name); ok {
			return false
		}
	}
	for _, p := range in.config.Include {
		if ok, _ := doublestar.Match(strings.ToLower(p), name); ok {
			return true
		}
	}
	return false
}

// Scan captures every matching file already in the directory.
// Files that fail are logged and skipped.
func (in *Inbox) Scan(ctx context.Context) ([]core.Item, error) {
	entries, err := os.ReadDir(in.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var items []core.Item
	for _, e := range entries {
		if e.IsDir() || !in.Matches(e.Name()) {
			continue
		}
		it, err := in.CaptureFile(ctx, filepath.Join(in.config.Dir, e.Name()))
		if err != nil {
			if !errors.Is(err, ErrSkipped) {
				in.config.Logger.Warn("capture failed", "file", e.Name(), "error", err)
			}
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// CaptureFile turns one file into an item, saves it and moves the file away.
func (in *Inbox) CaptureFile(ctx context.Context, path string) (core.Item, error) {
	name := filepath.Base(path)
	if !in.Matches(name) {
		return core.Item{}, fmt.Errorf("%w: %s does not match", ErrSkipped, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Item{}, fmt.Errorf("%w: %s vanished", ErrSkipped, name)
		}
		return core.Item{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return core.Item{}, fmt.Errorf("%w: %s is empty", ErrSkipped, name)
	}

	var it core.Item
	if core.IsImageExt(filepath.Ext(name)) {
		asset, err := in.sink.UploadAsset(ctx, data, name)
		if err != nil {
			return core.Item{}, fmt.Errorf("failed to upload %s: %w", name, err)
		}
		it = core.NewImage(strings.TrimSuffix(name, filepath.Ext(name)), asset)
	} else {
		it = Parse(name, data)
	}
	it.Tags = core.NormalizeTags(append(it.Tags, in.config.Tags...))

	if err := in.sink.Save(ctx, it); err != nil {
		return core.Item{}, fmt.Errorf("failed to save %s: %w", name, err)
	}
	in.config.Logger.Info("captured", "file", name, "id", it.ID, "kind", it.Kind)

	if !in.config.Keep {
		if err := in.archive(path); err != nil {
			in.config.Logger.Warn("failed to move captured file", "file", name, "error", err)
		}
	}
	if in.config.OnCapture != nil {
		in.config.OnCapture(it)
	}
	return it, nil
}

// archive moves a captured file into CapturedDir without overwriting.
func (in *Inbox) archive(path string) error {
	dir := filepath.Join(in.config.Dir, CapturedDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(dir, time.Now().UTC().Format("20060102T150405.000")+"-"+filepath.Base(path))
	}
	return os.Rename(path, target)
}

// Parse builds a note or link item from a text file.
//
// A .url file, or a text whose only content is an absolute URL, becomes a
// link. Otherwise the file is a note; a leading "# Heading" line becomes the
// title.
func Parse(name string, data []byte) core.Item {
	text := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))

	if strings.EqualFold(filepath.Ext(name), ".url") {
		if u := shortcutURL(text); u != "" {
			it := core.NewLink(u)
			it.Title = strings.TrimSuffix(name, filepath.Ext(name))
			return it
		}
	}
	if isURL(text) {
		return core.NewLink(text)
	}

	title, body := "", text
	if first, rest, _ := strings.Cut(text, "\n"); strings.HasPrefix(first, "# ") {
		title = strings.TrimSpace(strings.TrimPrefix(first, "# "))
		body = strings.TrimSpace(rest)
	}
	it := core.NewNote(body)
	it.Title = title
	return it
}

// shortcutURL reads the URL= line of an internet shortcut, or the whole
// text when it is a bare URL.
func shortcutURL(text string) string {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, "URL="); ok && isURL(v) {
			return v
		}
	}
	if isURL(text) {
		return text
	}
	return ""
}

func isURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \n\t") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
