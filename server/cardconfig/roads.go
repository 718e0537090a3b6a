package cardconfig

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

var roadSeparators = regexp.MustCompile(`[;,]`)

// RoadList is the road filter. It is edited as a comma or semicolon separated string and kept as
// a list at runtime; both forms are accepted when decoding.
type RoadList []string

// ParseRoadList splits an editor string into a road list, dropping empty entries.
func ParseRoadList(s string) RoadList {
	out := RoadList{}
	for _, part := range roadSeparators.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// String returns the editor form of the list.
func (r RoadList) String() string {
	return strings.Join(r, ", ")
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RoadList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = ParseRoadList(s)
		return nil
	}

	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		// null and other shapes mean no filter
		*r = nil
		return nil
	}
	*r = fromAny(list)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RoadList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*r = nil
			return nil
		}
		*r = ParseRoadList(value.Value)
	case yaml.SequenceNode:
		var list []any
		if err := value.Decode(&list); err != nil {
			return err
		}
		*r = fromAny(list)
	default:
		*r = nil
	}
	return nil
}

// JSONSchema describes both accepted forms.
func (RoadList) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: "Roads to show; a list or a comma/semicolon separated string",
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
	}
}

func fromAny(list []any) RoadList {
	out := make(RoadList, 0, len(list))
	for _, v := range list {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			out = append(out, t)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				continue
			}
			out = append(out, string(b))
		}
	}
	return out
}
