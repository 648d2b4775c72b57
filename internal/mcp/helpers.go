package mcpserver

import (
	"encoding/json"
	"fmt"
	"math"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

func boolPtr(v bool) *bool { return &v }

// intArg reads a whole-number argument. ok is false when it is absent.
func intArg(args map[string]any, name string) (n int, ok bool, err error) {
	raw, present := args[name]
	if !present || raw == nil {
		return 0, false, nil
	}
	f, isNum := raw.(float64)
	if !isNum {
		return 0, false, fmt.Errorf("%s must be a number", name)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false, fmt.Errorf("%s must be a whole number, got %v", name, f)
	}
	return int(f), true, nil
}
