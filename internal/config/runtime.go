package config

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"quantdesk/internal/logger"
)

// RuntimeConfig is the operator-controlled state read at the top of every
// pipeline request: execution mode and kill switches. It is never cached
// beyond the provider TTL so trading can be halted without a restart.
type RuntimeConfig struct {
	ExecutionMode string   `toml:"execution_mode"`
	KillSwitch    bool     `toml:"kill_switch"`
	HaltedUsers   []string `toml:"halted_users"`
}

// UserHalted reports whether the per-user kill switch is set.
func (r RuntimeConfig) UserHalted(userID string) bool {
	for _, u := range r.HaltedUsers {
		if u == userID {
			return true
		}
	}
	return false
}

// RuntimeProvider serves RuntimeConfig snapshots from a YAML file. Values
// are cached for a short TTL and invalidated eagerly when the file changes.
type RuntimeProvider struct {
	path        string
	ttl         time.Duration
	defaultMode string

	mu       sync.Mutex
	cached   RuntimeConfig
	loadedAt time.Time

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRuntimeProvider builds a provider over src. defaultMode is used when
// the runtime file is absent or does not set an execution mode.
func NewRuntimeProvider(src RuntimeSource, defaultMode string) *RuntimeProvider {
	p := &RuntimeProvider{
		path:        src.Path,
		ttl:         time.Duration(src.TTLSeconds) * time.Second,
		defaultMode: defaultMode,
		done:        make(chan struct{}),
	}
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(src.Path); err == nil {
			p.watcher = w
			go p.watchLoop()
		} else {
			w.Close()
			logger.Debugf("runtime config watch unavailable (%s): %v", src.Path, err)
		}
	}
	return p
}

// Current returns the runtime snapshot, re-reading the backing file when the
// cached copy is older than the TTL.
func (p *RuntimeProvider) Current() RuntimeConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loadedAt.IsZero() && time.Since(p.loadedAt) < p.ttl {
		return p.cached
	}
	p.cached = p.load()
	p.loadedAt = time.Now()
	return p.cached
}

func (p *RuntimeProvider) Close() error {
	close(p.done)
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}

func (p *RuntimeProvider) load() RuntimeConfig {
	rc := RuntimeConfig{ExecutionMode: p.defaultMode}
	v := viper.New()
	v.SetConfigFile(p.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		logger.Debugf("runtime config read failed (%s), using defaults: %v", p.path, err)
		return rc
	}
	if err := v.Unmarshal(&rc, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		logger.Warnf("runtime config parse failed (%s), using defaults: %v", p.path, err)
		return RuntimeConfig{ExecutionMode: p.defaultMode}
	}
	rc.ExecutionMode = strings.ToUpper(strings.TrimSpace(rc.ExecutionMode))
	if rc.ExecutionMode == "" {
		rc.ExecutionMode = p.defaultMode
	}
	return rc
}

func (p *RuntimeProvider) watchLoop() {
	for {
		select {
		case <-p.done:
			return
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				p.mu.Lock()
				p.loadedAt = time.Time{}
				p.mu.Unlock()
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			logger.Debugf("runtime config watcher error: %v", err)
		}
	}
}
