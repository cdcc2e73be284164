package model

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaDocument []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaDocument))
})

// Load reads a matching model from a JSON or YAML file.
func Load(path string) (*MatchingModel, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("matching model file is not configured")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read matching model %q: %w", path, err)
	}

	m, err := FromDocument(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("load matching model %q: %w", path, err)
	}

	return m, nil
}

// FromDocument checks a decoded document against the model schema, decodes it and validates the result.
func FromDocument(doc map[string]any) (*MatchingModel, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidModel)
	}

	if err := CheckSchema(doc); err != nil {
		return nil, err
	}

	m := New()
	cfg := &mapstructure.DecoderConfig{
		Result:           m,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	m.compact()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// CheckSchema validates the raw document shape, reporting every schema error at once.
func CheckSchema(doc map[string]any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile model schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]error, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, errors.New(desc.String()))
	}

	return fmt.Errorf("%w: %w", ErrInvalidModel, errors.Join(errs...))
}
