package main

import (
	"os"
	"regexp"
	"strings"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"gopkg.in/yaml.v3"
)

// config mirrors .gocleanarch.yml.
type config struct {
	Version        int      `yaml:"version"`
	Root           string   `yaml:"root"`
	IgnoreTests    bool     `yaml:"ignore_tests"`
	IgnorePackages []string `yaml:"ignore_packages"`
	// Violations touching a shared module are not reported.
	SharedModules     []string `yaml:"shared_modules"`
	AllowedViolations []string `yaml:"allow_violations"`
	Layers            layers   `yaml:"aliases"`
}

type layers struct {
	Domain         []string `yaml:"domain"`
	Application    []string `yaml:"application"`
	Interfaces     []string `yaml:"interfaces"`
	Infrastructure []string `yaml:"infrastructure"`
}

var defaultLayers = layers{
	Domain:         []string{"domain"},
	Application:    []string{"services"},
	Interfaces:     []string{"presentation"},
	Infrastructure: []string{"infrastructure"},
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	return cfg, nil
}

// aliases maps directory names to layers, falling back to defaultLayers
// for every layer the config leaves empty.
func (l layers) aliases() map[string]cleanarch.Layer {
	out := map[string]cleanarch.Layer{}
	add := func(names, fallback []string, layer cleanarch.Layer) {
		if len(names) == 0 {
			names = fallback
		}
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out[n] = layer
			}
		}
	}
	add(l.Domain, defaultLayers.Domain, cleanarch.LayerDomain)
	add(l.Application, defaultLayers.Application, cleanarch.LayerApplication)
	add(l.Interfaces, defaultLayers.Interfaces, cleanarch.LayerInterfaces)
	add(l.Infrastructure, defaultLayers.Infrastructure, cleanarch.LayerInfrastructure)
	return out
}

var crossModulePattern = regexp.MustCompile(`between ([\w-]+) and ([\w-]+) modules`)

// reportable drops violations waived by SharedModules or AllowedViolations.
func (c *config) reportable(errs []cleanarch.ValidationError) []cleanarch.ValidationError {
	var out []cleanarch.ValidationError
	for _, e := range errs {
		if !c.waived(e.Error()) {
			out = append(out, e)
		}
	}
	return out
}

func (c *config) waived(msg string) bool {
	if m := crossModulePattern.FindStringSubmatch(msg); len(m) == 3 {
		for _, shared := range c.SharedModules {
			if s := strings.TrimSpace(shared); s != "" && (s == m[1] || s == m[2]) {
				return true
			}
		}
	}
	for _, pattern := range c.AllowedViolations {
		if pattern != "" && strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
