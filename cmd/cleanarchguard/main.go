// Command cleanarchguard checks that module packages only import inward:
// presentation and infrastructure may use services, services may use
// domain, and domain imports neither.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
)

func main() {
	configPath := flag.String("config", ".gocleanarch.yml", "path to the layer config")
	debug := flag.Bool("debug", false, "enable go-cleanarch debug logging")
	flag.Parse()

	if *debug {
		cleanarch.Log.SetOutput(os.Stderr)
	}
	violations, err := run(*configPath, os.Stderr)
	if err != nil {
		log.Fatalf("cleanarchguard: %v", err)
	}
	if violations > 0 {
		log.Printf("layer check failed: %d violation(s)", violations)
		os.Exit(1)
	}
	log.Println("layer check passed")
}

// run validates the tree described by the config at path and writes each
// reportable violation to out.
func run(path string, out io.Writer) (int, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return 0, fmt.Errorf("read config: %w", err)
	}
	root := cfg.Root
	if !filepath.IsAbs(root) {
		root = filepath.Join(filepath.Dir(path), root)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return 0, fmt.Errorf("resolve root: %w", err)
	}

	validator := cleanarch.NewValidator(cfg.Layers.aliases())
	ok, errs, err := validator.Validate(root, cfg.IgnoreTests, cfg.IgnorePackages)
	if err != nil {
		return 0, fmt.Errorf("validate %s: %w", root, err)
	}
	if ok {
		return 0, nil
	}
	violations := cfg.reportable(errs)
	for _, v := range violations {
		fmt.Fprintln(out, v.Error())
	}
	return len(violations), nil
}
