package cohort

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// LoadFile reads a cohort from a JSON or YAML file with top-level cohort_id, mentors and mentees keys.
func LoadFile(path string) (*Cohort, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("cohort file is not configured")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read cohort file %q: %w", path, err)
	}

	c := &Cohort{ID: v.GetString("cohort_id")}

	if err := DecodeRecords(v.Get("mentors"), &c.Mentors); err != nil {
		return nil, fmt.Errorf("decode mentors: %w", err)
	}
	if err := DecodeRecords(v.Get("mentees"), &c.Mentees); err != nil {
		return nil, fmt.Errorf("decode mentees: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.Normalize()
	return c, nil
}

// DecodeRecords decodes loosely typed profile records into target.
// Numbers given as strings and comma separated lists are accepted.
func DecodeRecords(input any, target any) error {
	if input == nil {
		return nil
	}

	cfg := &mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// Validate checks that every profile has a unique, non-empty id.
func (c *Cohort) Validate() error {
	seen := make(map[string]struct{}, len(c.Mentors)+len(c.Mentees))
	check := func(kind, id string, idx int) error {
		id = strings.TrimSpace(id)
		if id == "" {
			return fmt.Errorf("%s #%d has no id", kind, idx)
		}
		key := kind + ":" + id
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate %s id %q", kind, id)
		}
		seen[key] = struct{}{}
		return nil
	}

	for i, m := range c.Mentors {
		if m == nil {
			return fmt.Errorf("mentor #%d is empty", i)
		}
		if err := check("mentor", m.ID, i); err != nil {
			return err
		}
		if m.CapacityRemaining < 0 {
			return fmt.Errorf("mentor %q has negative capacity_remaining", m.ID)
		}
	}
	for i, m := range c.Mentees {
		if m == nil {
			return fmt.Errorf("mentee #%d is empty", i)
		}
		if err := check("mentee", m.ID, i); err != nil {
			return err
		}
	}

	return nil
}
