package jsonutil

import (
	"encoding/json"
	"fmt"

	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

// DecodeValue decodes arbitrary JSON into a models.Value.
func DecodeValue(data []byte) (models.Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Value{}, fmt.Errorf("decode value: %w", err)
	}
	return models.FromInterface(raw), nil
}

// EncodeValue serializes a models.Value to JSON. This is the canonical
// store representation, also used for capacity accounting.
func EncodeValue(v models.Value) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return data, nil
}

// FlexibleString renders a scalar value as a stable string, handling records
// that store numbers or booleans where strings were expected. Integral
// numbers render without a decimal point so "1" and 1 land in the same
// distinct-value bucket. The second return is false for null, undefined,
// arrays, and objects.
func FlexibleString(v models.Value) (string, bool) {
	switch v.Type() {
	case models.ValueTypeString:
		s, _ := v.AsString()
		return s, true
	case models.ValueTypeNumber:
		n, _ := v.AsNumber()
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n)), true
		}
		return fmt.Sprintf("%g", n), true
	case models.ValueTypeBoolean:
		b, _ := v.AsBool()
		return fmt.Sprintf("%t", b), true
	default:
		return "", false
	}
}
