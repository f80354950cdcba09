package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/magiconair/properties"
	"github.com/spf13/viper"
)

// ErrUnsupportedFormat is returned for a config file whose extension no
// reader understands.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// viperExts are read with viper; .properties files with magiconair/properties.
var viperExts = map[string]bool{
	"json": true, "toml": true, "yaml": true, "yml": true, "env": true, "dotenv": true,
}

type fileSource interface {
	isSet(key string) bool
	get(key string) any
}

type viperSource struct{ v *viper.Viper }

func (s viperSource) isSet(key string) bool { return s.v.IsSet(key) }
func (s viperSource) get(key string) any    { return s.v.Get(key) }

type propertiesSource struct{ p *properties.Properties }

func (s propertiesSource) isSet(key string) bool {
	_, ok := s.p.Get(key)
	return ok
}

func (s propertiesSource) get(key string) any {
	v, _ := s.p.Get(key)
	return v
}

// FileProvider is a composite of configuration files. The first file that
// holds a key supplies its value.
//
//	p, err := config.NewFileProvider("conf/app.yaml", "conf/defaults.properties")
type FileProvider struct {
	paths   []string
	sources []fileSource
}

// NewFileProvider reads every file up front. The format is chosen by
// extension.
func NewFileProvider(paths ...string) (*FileProvider, error) {
	p := &FileProvider{}
	for _, path := range paths {
		src, err := openFile(path)
		if err != nil {
			return nil, err
		}
		p.paths = append(p.paths, path)
		p.sources = append(p.sources, src)
	}
	return p, nil
}

func openFile(path string) (fileSource, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch {
	case ext == "properties":
		props, err := properties.LoadFile(path, properties.UTF8)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		return propertiesSource{p: props}, nil
	case viperExts[ext]:
		v := viper.New()
		v.SetConfigFile(path)
		if ext == "env" || ext == "dotenv" {
			v.SetConfigType("env")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		return viperSource{v: v}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Paths returns the files in lookup order.
func (p *FileProvider) Paths() []string { return p.paths }

func (p *FileProvider) Contains(key string) bool {
	for _, s := range p.sources {
		if s.isSet(key) {
			return true
		}
	}
	return false
}

func (p *FileProvider) Value(key string, typ reflect.Type) (any, bool) {
	for _, s := range p.sources {
		if s.isSet(key) {
			return Convert(s.get(key), typ)
		}
	}
	return nil, false
}
