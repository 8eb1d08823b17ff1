// Package loader reads message definitions written as YAML (or JSON) files
// and turns them into validated requests.
package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"msgkit/internal/config"
	"msgkit/internal/domain"
	"msgkit/internal/model"

	"gopkg.in/yaml.v3"
)

// Definition is one request loaded from a file.
type Definition struct {
	Name    string
	Path    string
	Request *model.Request
}

// Parse decodes a YAML or JSON document into a request, filling sender
// fields the document leaves out from defaults.
func Parse(data []byte, defaults config.DefaultsConfig) (*model.Request, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	applyDefaults(doc, defaults)
	return model.RequestFromMap(doc)
}

// LoadFile reads and parses a single definition file.
func LoadFile(path string, defaults config.DefaultsConfig) (*model.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	req, err := Parse(data, defaults)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return req, nil
}

// LoadDirectory loads every definition in dir. Files that cannot be read or
// do not describe a valid request are logged and skipped.
func LoadDirectory(dir string, defaults config.DefaultsConfig, logger *slog.Logger) ([]Definition, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("definitions directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}

	var defs []Definition
	for _, entry := range entries {
		if entry.IsDir() || !IsDefinitionFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		req, err := LoadFile(path, defaults)
		if err != nil {
			logger.Warn("skipping definition", "path", path, "err", err)
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		logger.Debug("loaded definition", "name", name, "channels", req.Channels())
		defs = append(defs, Definition{Name: name, Path: path, Request: req})
	}

	return defs, nil
}

// IsDefinitionFile reports whether name has a definition extension.
func IsDefinitionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func decode(data []byte) (map[string]any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	budget := maxNodes
	v, err := nodeValue(&root, &budget)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, domain.NewValidationError(domain.KindInvalidCombination, "MultiChannelMessageRequest",
			"definition must be a mapping")
	}
	return obj, nil
}

// maxNodes caps the values a definition may expand to, aliases included. A
// full request (4 items, 10 cards, 11 actions each) stays far below it.
const maxNodes = 20000

// nodeValue converts a YAML node into plain maps and slices. Scalars keep
// their literal text, so "+15551234567" and "37.7749" stay strings. Every
// node visited, including each alias expansion, spends one unit of budget.
func nodeValue(n *yaml.Node, budget *int) (any, error) {
	if *budget--; *budget < 0 {
		return nil, domain.NewValidationError(domain.KindCapacityExceeded, "MultiChannelMessageRequest",
			fmt.Sprintf("definition expands to more than %d values", maxNodes))
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0], budget)
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := nodeValue(n.Content[i+1], budget)
			if err != nil {
				return nil, err
			}
			m[key.Value] = v
		}
		return m, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c, budget)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.AliasNode:
		return nodeValue(n.Alias, budget)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return n.Value, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

func applyDefaults(doc map[string]any, d config.DefaultsConfig) {
	// the platform's default priority needs no key
	if _, ok := doc["priority"]; !ok && d.Priority != "" && d.Priority != string(domain.PriorityDefault) {
		doc["priority"] = d.Priority
	}
	items, _ := doc["channelList"].([]any)
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := item["from"]; !ok && d.From != "" {
			item["from"] = d.From
		}
		if _, ok := item["applicationId"]; !ok && d.ApplicationID != "" {
			item["applicationId"] = d.ApplicationID
		}
	}
}
