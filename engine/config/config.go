// Package config loads engine settings from TOML or YAML files and watches them for changes.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
)

// ErrUnsupportedFormat is returned for config files that are neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Config is the full engine configuration.
type Config struct {
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Title  string `toml:"title" yaml:"title"`

	// Resize limits of the window in pixels. Zero leaves a limit unenforced.
	MinWidth  int `toml:"min_width" yaml:"min_width"`
	MinHeight int `toml:"min_height" yaml:"min_height"`
	MaxWidth  int `toml:"max_width" yaml:"max_width"`
	MaxHeight int `toml:"max_height" yaml:"max_height"`

	Renderer    Renderer             `toml:"renderer" yaml:"renderer"`
	Shadow      Shadow               `toml:"shadow" yaml:"shadow"`
	PostProcess postprocess.Settings `toml:"post_process" yaml:"post_process"`
}

// Renderer holds the renderer limits and policies.
type Renderer struct {
	MaxSpotLights  int `toml:"max_spot_lights" yaml:"max_spot_lights"`
	MaxPointLights int `toml:"max_point_lights" yaml:"max_point_lights"`

	// PrepWorkers is the size of the per-frame CPU preparation pool. Zero picks one per CPU.
	PrepWorkers int `toml:"prep_workers" yaml:"prep_workers"`
	// PrepThreshold is the draw count from which preparation runs on the pool.
	PrepThreshold int `toml:"prep_threshold" yaml:"prep_threshold"`

	// RetainStaleLights keeps light uniform blocks from the previous frame instead of zeroing them.
	RetainStaleLights bool `toml:"retain_stale_lights" yaml:"retain_stale_lights"`
}

// Shadow holds the shadow map settings applied when the demo creates light shadows.
type Shadow struct {
	Resolution int     `toml:"resolution" yaml:"resolution"`
	HalfExtent float32 `toml:"half_extent" yaml:"half_extent"`
	Bias       float32 `toml:"bias" yaml:"bias"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Width:  1280,
		Height: 720,
		Title:  "oxy-deferred",

		MinWidth:  320,
		MinHeight: 200,
		MaxWidth:  3840,
		MaxHeight: 2160,

		Renderer: Renderer{
			MaxSpotLights:  8,
			MaxPointLights: 16,
			PrepThreshold:  64,
		},
		Shadow: Shadow{
			Resolution: 2048,
			HalfExtent: 40,
			Bias:       0.001,
		},
		PostProcess: postprocess.DefaultSettings(),
	}
}

// Load reads a config file over Default, so keys absent from the file keep their defaults.
// The format follows the extension: .toml, or .yaml / .yml.
//
// Parameters:
//   - path: the config file
//
// Returns:
//   - Config: the loaded configuration
//   - error: a read or decode error, or ErrUnsupportedFormat
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	cfg, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Decode decodes config bytes over Default.
//
// Parameters:
//   - data: the encoded config
//   - ext: the format, as a file extension
//
// Returns:
//   - Config: the decoded configuration
//   - error: a decode error, or ErrUnsupportedFormat
func Decode(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, err
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports values no engine component accepts.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("size %dx%d must be positive", c.Width, c.Height))
	}
	if c.MinWidth < 0 || c.MinHeight < 0 || c.MaxWidth < 0 || c.MaxHeight < 0 {
		errs = append(errs, fmt.Errorf("window size limits must not be negative"))
	}
	if (c.MaxWidth > 0 && c.MinWidth > c.MaxWidth) || (c.MaxHeight > 0 && c.MinHeight > c.MaxHeight) {
		errs = append(errs, fmt.Errorf("window minimum %dx%d exceeds maximum %dx%d", c.MinWidth, c.MinHeight, c.MaxWidth, c.MaxHeight))
	}
	if c.Renderer.MaxSpotLights < 0 || c.Renderer.MaxPointLights < 0 {
		errs = append(errs, fmt.Errorf("light limits must not be negative"))
	}
	if c.Renderer.PrepWorkers < 0 || c.Renderer.PrepThreshold < 0 {
		errs = append(errs, fmt.Errorf("prep workers and threshold must not be negative"))
	}
	if c.Shadow.Resolution <= 0 {
		errs = append(errs, fmt.Errorf("shadow resolution %d must be positive", c.Shadow.Resolution))
	}
	return errors.Join(errs...)
}

// Encode writes cfg in the format of ext.
//
// Parameters:
//   - cfg: the configuration
//   - ext: the format, as a file extension
//
// Returns:
//   - []byte: the encoded config
//   - error: an encode error, or ErrUnsupportedFormat
func Encode(cfg Config, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		return toml.Marshal(cfg)
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}
}

// Watch reloads path whenever it is written or replaced and passes each successfully loaded
// config to fn. A file that fails to load is logged and skipped. Watch blocks until ctx is done.
//
// Parameters:
//   - ctx: stops the watch when done
//   - path: the config file
//   - fn: receives every reloaded config
//
// Returns:
//   - error: an error if the watcher cannot start, or ctx.Err() when it stops
func Watch(ctx context.Context, path string, fn func(Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}
	defer watcher.Close()

	// Editors often save by replacing the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}

	log := logger.L().With("config", abs)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				log.Error("config reload failed", "err", err)
				continue
			}
			log.Info("config reloaded")
			fn(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config watcher", "err", err)
		}
	}
}
