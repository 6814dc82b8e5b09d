package helpers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// Binary size units
const (
	KiB int64 = 1024
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB
)

var unitMultipliers = map[string]int64{
	"kib": KiB,
	"mib": MiB,
	"gib": GiB,
}

// ToBytes converts a unit-qualified size (KiB, MiB or GiB, any case) into a byte count.
// An unknown unit or a negative value is a configuration error.
func ToBytes(value int64, unit string) (int64, error) {
	mult, ok := unitMultipliers[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, app.Errorf(app.ErrCodeConfiguration, "unknown size unit %q (want KiB, MiB or GiB)", unit)
	}
	if value < 0 {
		return 0, app.Errorf(app.ErrCodeConfiguration, "size must not be negative, got %d", value)
	}
	if value > math.MaxInt64/mult {
		return 0, app.Errorf(app.ErrCodeConfiguration, "size %d %s overflows", value, unit)
	}
	return value * mult, nil
}

// ParseSize converts a combined label such as "64MiB" or "16 kib" into bytes
func ParseSize(label string) (int64, error) {
	s := strings.TrimSpace(label)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, app.Errorf(app.ErrCodeConfiguration, "size %q has no numeric value", label)
	}
	value, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, app.NewError(app.ErrCodeConfiguration, fmt.Sprintf("invalid size %q", label), err)
	}
	return ToBytes(value, s[i:])
}

// FormatSize renders a byte count with the largest unit that divides it exactly
func FormatSize(bytes int64) string {
	switch {
	case bytes != 0 && bytes%GiB == 0:
		return fmt.Sprintf("%dGiB", bytes/GiB)
	case bytes != 0 && bytes%MiB == 0:
		return fmt.Sprintf("%dMiB", bytes/MiB)
	case bytes != 0 && bytes%KiB == 0:
		return fmt.Sprintf("%dKiB", bytes/KiB)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// SectorsFor returns the number of whole sectors needed to hold n bytes
func SectorsFor(n, sectorSize int64) int64 {
	return (n + sectorSize - 1) / sectorSize
}
