package storage

// Proceeds accumulates sale revenue attributed to each farm, by crop.
// Revenue is attributed only when a sale happens, never at harvest.
type Proceeds map[string]map[string]float64

// Add attributes each sale's revenue across its batch owners.
func (p Proceeds) Add(sales []Sale) {
	for _, s := range sales {
		for _, a := range s.Allocations {
			byCrop := p[a.FarmID]
			if byCrop == nil {
				byCrop = make(map[string]float64)
				p[a.FarmID] = byCrop
			}
			byCrop[s.Product.Crop] += a.Amount
		}
	}
}

// FarmTotal is a farm's revenue over all crops.
func (p Proceeds) FarmTotal(farmID string) float64 {
	total := 0.0
	for _, v := range p[farmID] {
		total += v
	}
	return total
}

// Total is revenue over all farms.
func (p Proceeds) Total() float64 {
	total := 0.0
	for id := range p {
		total += p.FarmTotal(id)
	}
	return total
}
