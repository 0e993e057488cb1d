// Package economy provides commodity and utility prices for the community.
// Prices come from historical series and are resolved per simulated day.
package economy

import (
	"fmt"
	"strings"
)

// Pathway is the product form a harvest is processed into.
type Pathway uint8

const (
	PathwayFresh Pathway = iota
	PathwayPackaged
	PathwayCanned
	PathwayDried
)

// NumPathways is the number of processing pathways.
const NumPathways = 4

// Pathways lists all pathways in fixed order.
var Pathways = [NumPathways]Pathway{PathwayFresh, PathwayPackaged, PathwayCanned, PathwayDried}

func (p Pathway) String() string {
	switch p {
	case PathwayFresh:
		return "fresh"
	case PathwayPackaged:
		return "packaged"
	case PathwayCanned:
		return "canned"
	case PathwayDried:
		return "dried"
	default:
		return fmt.Sprintf("pathway(%d)", uint8(p))
	}
}

// ParsePathway maps a name to a Pathway.
func ParsePathway(name string) (Pathway, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fresh":
		return PathwayFresh, nil
	case "packaged":
		return PathwayPackaged, nil
	case "canned":
		return PathwayCanned, nil
	case "dried":
		return PathwayDried, nil
	}
	return 0, fmt.Errorf("unknown pathway %q", name)
}

// ProductKey identifies a sellable product.
type ProductKey struct {
	Crop    string  `json:"crop"`
	Pathway Pathway `json:"pathway"`
}

func (k ProductKey) String() string {
	return k.Crop + "/" + k.Pathway.String()
}
