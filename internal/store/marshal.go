package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/reconciler/internal/ir"
)

// marshalKeys converts an update's property keys to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON so identical passes store identical rows.
func marshalKeys(keys []string) (string, error) {
	arr := make(ir.Array, len(keys))
	for i, k := range keys {
		arr[i] = ir.String(k)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal keys: %w", err)
	}
	return string(data), nil
}

// unmarshalKeys parses a keys column. An empty array yields nil so insert
// and delete records round-trip without a Keys slice.
func unmarshalKeys(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(data), &keys); err != nil {
		return nil, fmt.Errorf("unmarshal keys: %w", err)
	}
	return keys, nil
}
