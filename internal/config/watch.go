package config

import (
	"fmt"
	"strings"

	"flipview/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch reloads the configuration whenever the file at path changes and passes
// every successfully validated result to onChange. Invalid edits are logged and
// ignored so the running process keeps its last good configuration.
func Watch(path string, onChange func(*Config)) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("config watch requires a file path")
	}
	if onChange == nil {
		return fmt.Errorf("config watch requires a callback")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(path)
		if err != nil {
			logger.Errorf("[config] reload of %s failed: %v", evt.Name, err)
			return
		}
		logger.Infof("[config] reloaded %s", evt.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
