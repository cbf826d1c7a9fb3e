package services

import "encoding/json"

// flattenParams marshals a typed component config (e.g. domain.ChunkerConfig)
// to a flat JSON object suitable for registry.Build, merging in any
// additional backend-specific fields carried in extra (e.g. an API key)
// so constructors see one flat params object rather than a nested "params"
// key.
func flattenParams(base interface{}, extra map[string]interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}

	if len(extra) == 0 {
		return raw, nil
	}

	var flat map[string]interface{}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	for k, v := range extra {
		flat[k] = v
	}

	return json.Marshal(flat)
}
