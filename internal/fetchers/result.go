package fetchers

import "encoding/json"

// DecodeResult converts a cached value back into a Result. The memory
// backend hands back the stored *Result; the remote backend hands back the
// generic JSON decoding of it. In both cases the returned Result is a copy
// with its own metadata map, so cache-layer annotations never leak into the
// stored entry.
func DecodeResult(v interface{}) (*Result, bool) {
	switch r := v.(type) {
	case *Result:
		c := *r
		c.Metadata = copyMetadata(r.Metadata)
		return &c, true
	case Result:
		c := r
		c.Metadata = copyMetadata(r.Metadata)
		return &c, true
	case map[string]interface{}:
		data, err := json.Marshal(r)
		if err != nil {
			return nil, false
		}
		var result Result
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, false
		}
		if result.Metadata == nil {
			result.Metadata = make(map[string]interface{})
		}
		return &result, true
	default:
		return nil, false
	}
}

// Clone returns a copy of the result with its own metadata map.
func (r *Result) Clone() *Result {
	c := *r
	c.Metadata = copyMetadata(r.Metadata)
	return &c
}

func copyMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+4)
	for k, v := range m {
		out[k] = v
	}
	return out
}
