package accounting

import (
	"fmt"
	"strings"
)

// Method chooses how community costs are split across farms.
type Method uint8

const (
	MethodEqual Method = iota
	MethodArea
	MethodUsage
)

func (m Method) String() string {
	switch m {
	case MethodEqual:
		return "equal"
	case MethodArea:
		return "area_proportional"
	case MethodUsage:
		return "usage_proportional"
	default:
		return fmt.Sprintf("method(%d)", uint8(m))
	}
}

// ParseMethod maps a configuration name to a Method.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "equal", "":
		return MethodEqual, nil
	case "area", "area_proportional":
		return MethodArea, nil
	case "usage", "usage_proportional":
		return MethodUsage, nil
	}
	return 0, fmt.Errorf("unknown allocation method %q", name)
}

// Basis is what a farm is allocated on.
type Basis struct {
	FarmID string
	AreaHa float64
	Usage  float64 // cumulative irrigation before today
}

// Allocate splits total across farms. Output order matches farms. Area
// falls back to equal with no area; usage falls back to area before any
// usage history exists.
func Allocate(m Method, total float64, farms []Basis) []float64 {
	out := make([]float64, len(farms))
	if len(farms) == 0 || total == 0 {
		return out
	}

	weight := func(b Basis) float64 { return 1 }
	switch m {
	case MethodUsage:
		if sum(farms, func(b Basis) float64 { return b.Usage }) > 0 {
			weight = func(b Basis) float64 { return b.Usage }
			break
		}
		fallthrough
	case MethodArea:
		if sum(farms, func(b Basis) float64 { return b.AreaHa }) > 0 {
			weight = func(b Basis) float64 { return b.AreaHa }
		}
	}

	w := sum(farms, weight)
	for i, f := range farms {
		if v := weight(f); v > 0 {
			out[i] = total * v / w
		}
	}
	return out
}

func sum(farms []Basis, f func(Basis) float64) float64 {
	t := 0.0
	for _, b := range farms {
		if v := f(b); v > 0 {
			t += v
		}
	}
	return t
}
