package configwatcher

import "github.com/bft-labs/ethlink"

// WithConfigWatcher returns an ethlink Option that reloads the live link
// settings from a config file.
//
// Usage:
//
//	link, err := ethlink.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/ethlink.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) ethlink.Option {
	return ethlink.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher watches ~/.ethlink/config.toml.
func WithDefaultConfigWatcher() ethlink.Option {
	return WithConfigWatcher(DefaultConfig())
}
