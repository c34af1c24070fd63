package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

func TestDecodeValue(t *testing.T) {
	v, err := DecodeValue([]byte(`[{"id":1},{"id":2}]`))
	require.NoError(t, err)
	assert.Equal(t, models.ValueTypeArray, v.Type())
	assert.Equal(t, 2, v.Len())

	_, err = DecodeValue([]byte(`{"broken`))
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := models.Object(map[string]models.Value{
		"name":  models.String("ada"),
		"score": models.Number(9.5),
		"note":  models.Null(),
	})

	data, err := EncodeValue(original)
	require.NoError(t, err)

	back, err := DecodeValue(data)
	require.NoError(t, err)
	assert.True(t, original.Equal(back))
}

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name   string
		value  models.Value
		want   string
		scalar bool
	}{
		{"string", models.String("hello"), "hello", true},
		{"integral number drops decimal", models.Number(42), "42", true},
		{"float keeps decimal", models.Number(1.25), "1.25", true},
		{"bool", models.Bool(true), "true", true},
		{"null is not scalar", models.Null(), "", false},
		{"undefined is not scalar", models.Value{}, "", false},
		{"array is not scalar", models.Array(models.Number(1)), "", false},
		{"object is not scalar", models.Object(nil), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FlexibleString(tt.value)
			assert.Equal(t, tt.scalar, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlexibleString_NumberAndStringBucketTogether(t *testing.T) {
	fromNumber, ok := FlexibleString(models.Number(7))
	require.True(t, ok)
	fromString, ok := FlexibleString(models.String("7"))
	require.True(t, ok)
	assert.Equal(t, fromNumber, fromString)
}
