package crm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/tidwall/gjson"
)

// ApplyPatch overlays patches (later wins per field) onto base through its
// JSON form, so patch keys are the entity's JSON names.
func ApplyPatch[T any](base T, patches ...Patch) (T, error) {
	var out T

	raw, err := json.Marshal(base)
	if err != nil {
		return out, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, err
	}
	for _, p := range patches {
		for k, v := range p {
			fields[k] = v
		}
	}

	raw, err = json.Marshal(fields)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

// PatchOf returns the writable, non-empty fields of e as a Patch. It turns a
// client-side payload into a create body.
func PatchOf[T any](s Schema, e T) (Patch, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	out := Patch{}
	for k, v := range gjson.ParseBytes(raw).Map() {
		if !s.Writable(k) || v.Type == gjson.Null {
			continue
		}
		out[k] = v.Value()
	}
	return out, nil
}

// CheckPatch rejects keys that are not writable columns of s.
func (s Schema) CheckPatch(p Patch) error {
	var bad []string
	for k := range p {
		if !s.Writable(k) {
			bad = append(bad, k)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return fmt.Errorf("%w: %s: %s", common.ErrUnknownField, s.Table, strings.Join(bad, ", "))
}
