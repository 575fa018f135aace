// Package seed loads lookup registries and staff investigators from a YAML
// or TOML file.
package seed

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gcir/gms/modules/proposals/domain/entities/investigator"
	"github.com/gcir/gms/modules/proposals/domain/entities/lookup"
	"github.com/gcir/gms/modules/proposals/services"
)

var ErrUnsupportedFormat = errors.New("seed: unsupported file format")

type Lookup struct {
	Code string `yaml:"code" toml:"code"`
	Name string `yaml:"name" toml:"name"`
}

type Investigator struct {
	ID          string `yaml:"id" toml:"id"`
	Name        string `yaml:"name" toml:"name"`
	Email       string `yaml:"email" toml:"email"`
	Department  string `yaml:"department" toml:"department"`
	Designation string `yaml:"designation" toml:"designation"`
}

type File struct {
	Departments     []Lookup       `yaml:"departments" toml:"departments"`
	ProjectTypes    []Lookup       `yaml:"project_types" toml:"project_types"`
	FundingAgencies []Lookup       `yaml:"funding_agencies" toml:"funding_agencies"`
	Investigators   []Investigator `yaml:"investigators" toml:"investigators"`
}

func (f *File) lookups() map[lookup.Kind][]Lookup {
	return map[lookup.Kind][]Lookup{
		lookup.KindDepartment:    f.Departments,
		lookup.KindProjectType:   f.ProjectTypes,
		lookup.KindFundingAgency: f.FundingAgencies,
	}
}

// Parse decodes data according to the extension of name.
func Parse(name string, data []byte) (*File, error) {
	var f File
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("parse %s: unknown key %s", name, undecoded[0].String())
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", name)
	}
	return &f, nil
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return Parse(path, data)
}

type Result struct {
	Lookups       int
	Investigators int
}

type Seeder struct {
	lookups       *services.LookupService
	investigators *services.InvestigatorService
	logger        logrus.FieldLogger
}

func NewSeeder(lookups *services.LookupService, investigators *services.InvestigatorService, logger logrus.FieldLogger) *Seeder {
	return &Seeder{lookups: lookups, investigators: investigators, logger: logger}
}

// Apply upserts the file contents. Lookups go first so investigators can
// reference departments; existing codes are only renamed.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result
	groups := f.lookups()
	for _, kind := range lookup.Kinds {
		for _, item := range groups[kind] {
			l := &lookup.Lookup{Kind: kind, Code: item.Code, Name: item.Name}
			if err := s.lookups.Save(ctx, l); err != nil {
				return res, errors.Wrapf(err, "seed %s %s", kind, item.Code)
			}
			res.Lookups++
		}
	}
	for _, item := range f.Investigators {
		inv := &investigator.Investigator{
			ID:          item.ID,
			Name:        item.Name,
			Email:       item.Email,
			Designation: item.Designation,
		}
		if err := s.investigators.SaveInternal(ctx, inv, item.Department); err != nil {
			return res, errors.Wrapf(err, "seed investigator %s", item.ID)
		}
		res.Investigators++
	}
	s.logger.WithFields(logrus.Fields{
		"lookups":       res.Lookups,
		"investigators": res.Investigators,
	}).Info("seed applied")
	return res, nil
}
