package proposal

import (
	"bytes"
	"encoding/json"
	"sort"
)

// EditDTO is an RFC 7386 merge patch over Document, keyed by field.
type EditDTO map[string]json.RawMessage

// ParseEditDTO decodes a merge patch body; anything but a JSON object is
// rejected.
func ParseEditDTO(body []byte) (EditDTO, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, InvalidField("body", "merge patch must be a JSON object")
	}
	var d EditDTO
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return nil, InvalidField("body", err.Error())
	}
	return d, nil
}

// Keys returns the patched field names in sorted order.
func (d EditDTO) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate rejects immutable and unknown fields.
func (d EditDTO) Validate() error {
	for _, k := range d.Keys() {
		if _, ok := ImmutableKeys[k]; ok {
			return ImmutableField(k)
		}
		if _, ok := DocumentKeys[k]; !ok {
			return InvalidField(k, "unknown field")
		}
	}
	return nil
}

func (d EditDTO) MergePatch() ([]byte, error) {
	return json.Marshal(map[string]json.RawMessage(d))
}
