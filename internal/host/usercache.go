package host

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
	"git.home.luguber.info/inful/shelfkeeper/internal/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// usercacheTimeLayout is the expiresOn format the host writes.
const usercacheTimeLayout = "2006-01-02 15:04:05 -0700"

type usercacheEntry struct {
	Name      string `json:"name"`
	UUID      string `json:"uuid"`
	ExpiresOn string `json:"expiresOn"`
}

// UserCache is a Directory read from the host's usercache.json. It knows no
// connected owners.
type UserCache struct {
	path   string
	logger *slog.Logger
	retry  retry.Policy

	mu      sync.RWMutex
	records []Record
}

// NewUserCache returns an empty directory for path. Call Reload to read it.
func NewUserCache(path string, logger *slog.Logger) *UserCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserCache{
		path:   path,
		logger: logger.With(logfields.Component("usercache")),
		retry:  retry.DefaultPolicy(),
	}
}

// Reload re-reads the cache file. A missing file yields an empty directory.
func (u *UserCache) Reload() error {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(u.path)
	if errors.Is(err, fs.ErrNotExist) {
		u.set(nil)
		return nil
	}
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "read usercache").
			WithContext("path", u.path).
			Build()
	}

	var entries []usercacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "parse usercache").
			WithContext("path", u.path).
			Build()
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		id, err := uuid.Parse(e.UUID)
		if err != nil {
			u.logger.Debug("Skipping usercache entry", slog.String("name", e.Name), logfields.Error(err))
			continue
		}
		rec := Record{ID: id, Name: e.Name}
		if ts, err := time.Parse(usercacheTimeLayout, e.ExpiresOn); err == nil {
			// Entries expire a month after the owner was last seen.
			rec.LastSeen = ts.AddDate(0, -1, 0)
		}
		records = append(records, rec)
	}
	u.set(records)
	u.logger.Debug("Usercache loaded", logfields.Count(len(records)))
	return nil
}

func (u *UserCache) set(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	u.mu.Lock()
	u.records = records
	u.mu.Unlock()
}

// Resolve finds an owner by UUID string or case-insensitive name.
func (u *UserCache) Resolve(ref string) (Record, error) {
	return resolve(u.Known(), ref)
}

// Online always reports false.
func (u *UserCache) Online(uuid.UUID) (Owner, bool) { return nil, false }

// Known returns a copy of every cached owner, sorted by name.
func (u *UserCache) Known() []Record {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return slices.Clone(u.records)
}

// resolve implements Directory.Resolve over a record list.
func resolve(records []Record, ref string) (Record, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		for _, r := range records {
			if r.ID == id {
				return r, nil
			}
		}
		// An unknown but well-formed UUID can still address an owner file.
		return Record{ID: id}, nil
	}
	for _, r := range records {
		if strings.EqualFold(r.Name, ref) {
			return r, nil
		}
	}
	return Record{}, ferrors.Rejected(ferrors.ReasonOwnerNotFound, "Player not found: "+ref).Build()
}

// Watch reloads the cache whenever the file changes, until ctx ends.
// Bursts of file events within debounce collapse into one reload.
func (u *UserCache) Watch(ctx context.Context, debounce time.Duration, onReload func(n int)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "create file watcher").Build()
	}

	absPath, err := filepath.Abs(u.path)
	if err != nil {
		_ = watcher.Close()
		return ferrors.WrapError(err, ferrors.CategoryConfig, "resolve usercache path").Build()
	}
	// Watch the directory: the host replaces the file rather than rewriting it.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "watch usercache directory").
			WithContext("path", filepath.Dir(absPath)).
			Build()
	}

	go u.watchLoop(ctx, watcher, filepath.Base(absPath), debounce, onReload)
	return nil
}

func (u *UserCache) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, file string, debounce time.Duration, onReload func(int)) {
	defer func() { _ = watcher.Close() }()

	var timer *time.Timer
	reload := func() {
		// The host may be midway through rewriting the file.
		if err := u.retry.Do(ctx, nil, u.Reload); err != nil {
			u.logger.Warn("Usercache reload failed", logfields.Error(err))
			return
		}
		if onReload != nil {
			onReload(len(u.Known()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			u.logger.Warn("Usercache watcher error", logfields.Error(err))
		}
	}
}
