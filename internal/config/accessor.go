package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// leaves maps every settable "section.key" path of cfg to its field.
// Paths come from the json tags, so they match the config file.
func leaves(cfg *Config) map[string]reflect.Value {
	out := make(map[string]reflect.Value)
	root := reflect.ValueOf(cfg).Elem()
	for i := 0; i < root.NumField(); i++ {
		section := root.Field(i)
		prefix := jsonName(root.Type().Field(i))
		for j := 0; j < section.NumField(); j++ {
			out[prefix+"."+jsonName(section.Type().Field(j))] = section.Field(j)
		}
	}
	return out
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

// lookup resolves path, explaining what is valid when it does not exist.
func lookup(cfg *Config, path string) (reflect.Value, error) {
	all := leaves(cfg)
	if v, ok := all[path]; ok {
		return v, nil
	}

	section, _, _ := strings.Cut(path, ".")
	var sections, keys []string
	seen := map[string]bool{}
	for p := range all {
		s, k, _ := strings.Cut(p, ".")
		if !seen[s] {
			seen[s] = true
			sections = append(sections, s)
		}
		if s == section {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		sort.Strings(sections)
		return reflect.Value{}, fmt.Errorf("unknown config section %q (sections: %s)", section, strings.Join(sections, ", "))
	}
	sort.Strings(keys)
	if path == section {
		return reflect.Value{}, fmt.Errorf("%s is a section; use one of its keys: %s", section, strings.Join(keys, ", "))
	}
	return reflect.Value{}, fmt.Errorf("unknown config key %q (keys in %s: %s)", path, section, strings.Join(keys, ", "))
}

// GetByPath returns the value at a "section.key" path (e.g. "broker.exchange").
func GetByPath(cfg *Config, path string) (any, error) {
	v, err := lookup(cfg, path)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// SetByPath parses value according to the type of the field at path and
// stores it. String fields keep the raw text, so "+15551234567" stays a string.
func SetByPath(cfg *Config, path, value string) error {
	v, err := lookup(cfg, path)
	if err != nil {
		return err
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not a boolean", path, value)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", path, value)
		}
		v.SetInt(n)
	default:
		return fmt.Errorf("%s: unsupported field type %s", path, v.Type())
	}
	return nil
}

// Sanitize returns a copy of the config with sensitive values masked.
func Sanitize(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg // Return original on marshal error
	}
	var copy Config
	if err := json.Unmarshal(data, &copy); err != nil {
		return cfg
	}

	if copy.API.APIKey != "" {
		copy.API.APIKey = maskString(copy.API.APIKey)
	}

	if u, err := url.Parse(copy.Broker.URL); err == nil && u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "***")
			copy.Broker.URL = u.String()
		}
	}

	return &copy
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns every settable path with its current value, including
// fields the config file omits while empty.
func ListPaths(cfg *Config) map[string]any {
	result := make(map[string]any)
	for path, v := range leaves(cfg) {
		result[path] = v.Interface()
	}
	return result
}
