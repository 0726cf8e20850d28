package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Serialized procedure sets arrive in several shapes: a JSON object of
// procedure→appropriateness, a JSON array of structured records with
// code/name fields, or a bare list of tokens. Parsing runs an ordered
// chain of strategies; the terminal fallback is the empty set, never an
// error, so one malformed payload cannot sink a whole batch.

type procedureParser func(raw string) (map[string]struct{}, bool)

var procedureParsers = []procedureParser{
	parseProcedureObject,
	parseProcedureArray,
}

// ParseProcedures extracts the set of procedure identifiers from a
// serialized payload.
func ParseProcedures(raw string) map[string]struct{} {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]struct{}{}
	}
	for _, parse := range procedureParsers {
		if set, ok := parse(trimmed); ok {
			return set
		}
	}
	return map[string]struct{}{}
}

// parseProcedureObject handles the canonical export shape: a JSON
// object mapping procedure identifier to appropriateness label.
func parseProcedureObject(raw string) (map[string]struct{}, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, false
	}
	set := make(map[string]struct{}, len(obj))
	for proc := range obj {
		set[proc] = struct{}{}
	}
	return set, true
}

// parseProcedureArray handles a JSON array of mixed elements. A record
// with code or name fields contributes both; a partially structured
// record degrades to its string rendering rather than being dropped.
func parseProcedureArray(raw string) (map[string]struct{}, bool) {
	var arr []any
	if err := json.Unmarshal([]byte(raw), &arr); err != nil {
		return nil, false
	}
	set := make(map[string]struct{}, len(arr))
	for _, elem := range arr {
		switch v := elem.(type) {
		case map[string]any:
			found := false
			if code, ok := v["code"].(string); ok && code != "" {
				set[code] = struct{}{}
				found = true
			}
			if name, ok := v["name"].(string); ok && name != "" {
				set[name] = struct{}{}
				found = true
			}
			if !found {
				set[fmt.Sprintf("%v", v)] = struct{}{}
			}
		case string:
			if v != "" {
				set[v] = struct{}{}
			}
		default:
			set[fmt.Sprintf("%v", v)] = struct{}{}
		}
	}
	return set, true
}
