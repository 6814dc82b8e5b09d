package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

func TestToBytes(t *testing.T) {
	tests := []struct {
		name     string
		value    int64
		unit     string
		expected int64
	}{
		{name: "one KiB", value: 1, unit: "KiB", expected: 1024},
		{name: "ten MiB", value: 10, unit: "MiB", expected: 10 * 1024 * 1024},
		{name: "two GiB", value: 2, unit: "GiB", expected: 2 * 1024 * 1024 * 1024},
		{name: "lower case", value: 64, unit: "mib", expected: 64 * 1024 * 1024},
		{name: "upper case", value: 16, unit: "KIB", expected: 16 * 1024},
		{name: "padded unit", value: 3, unit: " gib ", expected: 3 * GiB},
		{name: "zero", value: 0, unit: "MiB", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBytes(tt.value, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestToBytesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		unit  string
	}{
		{name: "unknown unit", value: 10, unit: "MB"},
		{name: "empty unit", value: 10, unit: ""},
		{name: "bytes are not a unit", value: 512, unit: "b"},
		{name: "negative", value: -1, unit: "KiB"},
		{name: "overflow", value: 1 << 40, unit: "GiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToBytes(tt.value, tt.unit)
			require.Error(t, err)
			assert.True(t, app.IsCode(err, app.ErrCodeConfiguration), "expected configuration error, got %v", err)
		})
	}
}

func TestParseSize(t *testing.T) {
	got, err := ParseSize("16KiB")
	require.NoError(t, err)
	assert.Equal(t, int64(16384), got)

	got, err = ParseSize(" 64 mib")
	require.NoError(t, err)
	assert.Equal(t, 64*MiB, got)

	_, err = ParseSize("MiB")
	assert.True(t, app.IsCode(err, app.ErrCodeConfiguration))

	_, err = ParseSize("-1s")
	assert.True(t, app.IsCode(err, app.ErrCodeConfiguration))

	_, err = ParseSize("12parsecs")
	assert.True(t, app.IsCode(err, app.ErrCodeConfiguration))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "64MiB", FormatSize(64*MiB))
	assert.Equal(t, "2GiB", FormatSize(2*GiB))
	assert.Equal(t, "16KiB", FormatSize(16*KiB))
	assert.Equal(t, "1536KiB", FormatSize(1536*KiB))
	assert.Equal(t, "513B", FormatSize(513))
	assert.Equal(t, "0B", FormatSize(0))
}

func TestSectorsFor(t *testing.T) {
	assert.Equal(t, int64(0), SectorsFor(0, 512))
	assert.Equal(t, int64(1), SectorsFor(1, 512))
	assert.Equal(t, int64(1), SectorsFor(512, 512))
	assert.Equal(t, int64(2), SectorsFor(513, 512))
	assert.Equal(t, int64(6), SectorsFor(3072, 512))
}
