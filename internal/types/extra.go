package types

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Extra holds body fields beyond the modelled ones, kept exactly as the
// client sent them so that a stored record reads back verbatim.
type Extra map[string]json.RawMessage

// Clone copies the map. The raw values are never mutated, so they are shared.
func (e Extra) Clone() Extra {
	if len(e) == 0 {
		return nil
	}
	return maps.Clone(e)
}

// Merge returns e with every key of patch overwritten.
func (e Extra) Merge(patch Extra) Extra {
	if len(patch) == 0 {
		return e.Clone()
	}
	out := make(Extra, len(e)+len(patch))
	maps.Copy(out, e)
	maps.Copy(out, patch)
	return out
}

// appendExtra splices the extra fields, in key order, into the JSON object
// known. known must be a non-empty object.
func appendExtra(known []byte, extra Extra) ([]byte, error) {
	if len(extra) == 0 {
		return known, nil
	}

	var buf bytes.Buffer
	buf.Write(known[:len(known)-1])
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON writes the modelled fields followed by the extra ones.
func (s Student) MarshalJSON() ([]byte, error) {
	type plain Student
	known, err := json.Marshal(plain(s))
	if err != nil {
		return nil, err
	}
	return appendExtra(known, s.Extra)
}

// MarshalJSON writes the modelled fields followed by the extra ones.
func (c Course) MarshalJSON() ([]byte, error) {
	type plain Course
	known, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	return appendExtra(known, c.Extra)
}
