package universe

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Load reads a universe YAML file, applies defaults and validates it
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(cfg); err != nil {
		return nil, &ConfigError{Field: "yaml", Message: err.Error()}
	}

	cfg.Instruments = normalize(cfg.Instruments)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithInstruments returns a copy of cfg using the comma separated override list
func WithInstruments(cfg *Config, list string) (*Config, error) {
	out := *cfg
	out.Instruments = normalize(strings.Split(list, ","))
	if err := Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" && len(in) == 1 {
			continue
		}
		out = append(out, s)
	}
	return out
}
