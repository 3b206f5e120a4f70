// File: internal/browser/options.go
package browser

import (
	"sort"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/webgym/internal/config"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
)

// AllocatorOptions translates the browser config into chromedp allocator options.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.NoSandbox)

	flags := allocatorFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	width, height := viewport(cfg)
	opts = append(opts, chromedp.WindowSize(width, height))
	return opts
}

// allocatorFlags collects the command line switches derived from cfg. Keys carry
// no leading dashes; chromedp adds them.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"disable-dev-shm-usage": true,
		"headless":              cfg.Headless,
	}
	if cfg.DisableGPU {
		flags["disable-gpu"] = true
	}
	if cfg.DisableCache {
		flags["disk-cache-size"] = "0"
		flags["media-cache-size"] = "0"
		flags["disable-application-cache"] = true
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}

	// Extra switches from the config file, either "--flag" or "--key=value".
	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		key, value, found := strings.Cut(arg, "=")
		if !found {
			flags[key] = true
			continue
		}
		flags[key] = value
	}
	return flags
}

func viewport(cfg config.BrowserConfig) (int, int) {
	width, height := cfg.Viewport["width"], cfg.Viewport["height"]
	if width <= 0 {
		width = defaultViewportWidth
	}
	if height <= 0 {
		height = defaultViewportHeight
	}
	return width, height
}
