// Package utils holds small shared helpers for the filing engine.
package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// DecodeTolerant decodes JSON into out, trying progressively more lenient
// strategies. On-disk snapshots survive manual edits and truncated writes
// more often than strict decoding allows, so before declaring a snapshot
// corrupt we try:
//  1. Standard JSON parse
//  2. Hjson (comments, unquoted keys and values, optional commas)
//  3. JSON repair (unclosed objects, truncated writes)
//
// Hjson must run before the repairer: the repairer accepts hjson-style
// input and mangles it into structurally valid but wrong JSON, which
// would mask the correct parse.
func DecodeTolerant(data []byte, out interface{}) error {
	if err := json.Unmarshal(data, out); err == nil {
		return nil
	}

	if err := hjson.Unmarshal(data, out); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.RepairJSON(string(data)); err == nil {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("decode tolerant: all parsing strategies failed")
}
