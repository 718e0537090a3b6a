package cardconfig

import (
	"bytes"
	"fmt"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML or JSON card configuration. The result is not normalized.
func Parse(data []byte) (Config, error) {
	var c Config
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse card configuration: %w", err)
	}
	return c, nil
}

// Load parses and normalizes a card configuration.
func Load(data []byte) (Config, error) {
	c, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	return Normalize(c)
}

// Marshal encodes a configuration as YAML.
func Marshal(c Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode card configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode card configuration: %w", err)
	}
	return buf.Bytes(), nil
}

// Schema returns the JSON schema of the card configuration, used by configuration editors.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	s := r.Reflect(&Config{})
	s.Title = "Trafikinfo incident card"
	return s
}
