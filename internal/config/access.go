package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetPath retrieves a value from the configuration using a dot-notation path
// such as "log.level" or "layout.frameworks_dir".
func (c *Config) GetPath(path string) (any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return getValue(m, path)
}

func getValue(m map[string]any, path string) (any, error) {
	var current any = m

	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}

		node, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q breaks at %q (not a map)", path, part)
		}

		val, exists := node[part]
		if !exists {
			return nil, fmt.Errorf("path %q: key %q not found", path, part)
		}
		current = val
	}

	return current, nil
}

// SetPath writes value at path into the file the config was loaded from. The
// edited file must still load and validate, otherwise it is restored.
func (c *Config) SetPath(path, value string) error {
	if c.SourceFile == "" {
		return fmt.Errorf("config was not loaded from a file; run 'opener config init' first")
	}
	if strings.Trim(path, ".") == "" {
		return fmt.Errorf("config path is empty")
	}

	original, err := os.ReadFile(c.SourceFile)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(original, &doc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return fmt.Errorf("config file %s is not a YAML document", c.SourceFile)
	}

	target, err := findNode(doc.Content[0], path, true)
	if err != nil {
		return fmt.Errorf("failed to navigate/create path %q: %w", path, err)
	}
	target.Kind = yaml.ScalarNode
	target.Tag = "!!str"
	target.Value = value
	target.Content = nil

	candidate, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	if err := checkKnownFields(candidate); err != nil {
		return err
	}

	return c.persistWithValidation(original, candidate)
}

func findNode(node *yaml.Node, path string, create bool) (*yaml.Node, error) {
	current := node

	for _, part := range strings.Split(strings.Trim(path, "."), ".") {
		if current.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%q is not a mapping", part)
		}

		var next *yaml.Node
		for i := 0; i+1 < len(current.Content); i += 2 {
			if current.Content[i].Value == part {
				next = current.Content[i+1]
				break
			}
		}

		if next == nil {
			if !create {
				return nil, fmt.Errorf("key %q not found", part)
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part}
			next = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			current.Content = append(current.Content, key, next)
		}
		current = next
	}

	return current, nil
}

// checkKnownFields rejects keys that do not map to a Config field.
func checkKnownFields(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}
	return nil
}

func (c *Config) persistWithValidation(original, candidate []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(c.SourceFile); err == nil {
		mode = info.Mode().Perm()
	}

	if err := os.WriteFile(c.SourceFile, candidate, mode); err != nil {
		return fmt.Errorf("failed to persist config change: %w", err)
	}

	if _, err := Load(c.SourceFile); err != nil {
		if restoreErr := os.WriteFile(c.SourceFile, original, mode); restoreErr != nil {
			return fmt.Errorf("validation failed (%v) and rollback failed (%v)", err, restoreErr)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
