package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// 环境变量覆盖项。
const (
	EnvConfigPath    = "SIGNALBOT_CONFIG"
	EnvTelegramToken = "TELEGRAM_TOKEN"
	EnvTelegramChat  = "TELEGRAM_CHAT_ID"
)

func Load(path string) (*Config, error) {
	files, err := resolveConfigIncludes(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeConfigFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	collectSettingsKeys(v.AllSettings(), setKeys)
	cfg.applyDefaults(setKeys)
	cfg.applyEnv(os.Getenv)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// resolveConfigIncludes 展开 include 列表，返回按合并顺序排列的文件：被包含文件在前，包含者在后。
func resolveConfigIncludes(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r := includeResolver{done: make(map[string]bool), active: make(map[string]bool)}
	if err := r.visit(abs); err != nil {
		return nil, err
	}
	return r.order, nil
}

type includeResolver struct {
	done   map[string]bool
	active map[string]bool
	order  []string
}

func (r *includeResolver) visit(path string) error {
	path = filepath.Clean(path)
	switch {
	case r.active[path]:
		return fmt.Errorf("include cycle detected: %s", path)
	case r.done[path]:
		return nil
	}
	r.active[path] = true
	includes, err := readIncludes(path)
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := r.visit(inc); err != nil {
			return err
		}
	}
	delete(r.active, path)
	r.done[path] = true
	r.order = append(r.order, path)
	return nil
}

func readIncludes(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	raw := v.Get("include")
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("include must be a string array")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include only supports strings")
		}
		if str = strings.TrimSpace(str); str != "" {
			out = append(out, str)
		}
	}
	return out, nil
}

// collectSettingsKeys 把 viper 的嵌套配置展平成 "section.key" 形式记入 dest。
func collectSettingsKeys(settings map[string]any, dest keySet) {
	for k, v := range settings {
		markKeys(strings.ToLower(strings.TrimSpace(k)), v, dest)
	}
}

func markKeys(path string, node any, dest keySet) {
	if path == "" {
		return
	}
	children, ok := node.(map[string]any)
	if !ok {
		dest.mark(path)
		return
	}
	for k, v := range children {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			markKeys(path+"."+k, v, dest)
		}
	}
}

// applyEnv 用环境变量覆盖通知配置；token 与 chat id 同时存在时自动启用 Telegram。
func (c *Config) applyEnv(getenv func(string) string) {
	if getenv == nil {
		return
	}
	if token := strings.TrimSpace(getenv(EnvTelegramToken)); token != "" {
		c.Notify.Telegram.BotToken = token
	}
	if chat := strings.TrimSpace(getenv(EnvTelegramChat)); chat != "" {
		c.Notify.Telegram.ChatID = chat
	}
	if c.Notify.Telegram.BotToken != "" && c.Notify.Telegram.ChatID != "" {
		c.Notify.Telegram.Enabled = true
	}
}
