// Package configwatcher reloads the ethlink configuration file while a link
// runs. When the file changes, the inter-frame gap and the transmit enable
// are applied to the link; every other setting needs a restart.
package configwatcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/ethlink"
	"github.com/bft-labs/ethlink/internal/cliconfig"
	"github.com/bft-labs/ethlink/internal/ports"
)

// Plugin watches a TOML config file and pushes live settings to the link.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	pinned        map[string]bool

	link     ethlink.Reconfigurer
	logger   ethlink.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer

	ifg      *int
	txEnable *bool
	reloads  int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Pinned lists flag names ("ifg", "tx-enable") set on the command line.
	// The file never overrides them.
	Pinned map[string]bool
}

// DefaultConfig watches the default config path.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		pinned:        cfg.Pinned,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize records the current file values and starts the watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg ethlink.PluginConfig) error {
	if cfg.Link == nil {
		return errors.New("configwatcher: no link to reconfigure")
	}
	p.mu.Lock()
	p.link = cfg.Link
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config path")
		return nil
	}

	// Values already in the file were applied at startup.
	if fc, err := cliconfig.LoadFileConfig(p.path); err == nil {
		p.mu.Lock()
		p.ifg, p.txEnable = fc.IFG, fc.TxEnable
		p.mu.Unlock()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory so that editors replacing the file are seen.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.logger.Info("config watcher started", ports.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns the number of reloads that changed a link setting.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", ports.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload reads the file and applies the settings that changed since the
// last reload. A file that fails to parse leaves the link untouched.
func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Warn("config reload failed", ports.String("path", p.path), ports.Err(err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	changed := false
	if fc.IFG != nil && !p.pinned["ifg"] && !sameInt(p.ifg, fc.IFG) {
		if *fc.IFG < 0 {
			p.logger.Warn("config reload: negative ifg ignored", ports.Int("ifg", *fc.IFG))
		} else {
			p.link.SetIFG(*fc.IFG)
			p.ifg = fc.IFG
			changed = true
		}
	}
	if fc.TxEnable != nil && !p.pinned["tx-enable"] && !sameBool(p.txEnable, fc.TxEnable) {
		p.link.SetTxEnable(*fc.TxEnable)
		p.txEnable = fc.TxEnable
		changed = true
	}
	if changed {
		p.reloads++
		p.logger.Info("config reloaded", ports.String("path", p.path))
	}
}

func sameInt(a, b *int) bool   { return a != nil && b != nil && *a == *b }
func sameBool(a, b *bool) bool { return a != nil && b != nil && *a == *b }

// Ensure Plugin implements ethlink.Plugin.
var _ ethlink.Plugin = (*Plugin)(nil)
