package twi

import "math"

// Wetness computes the topographic wetness index ln(a / tan β) per cell,
// where a is the flow accumulation and tan β the D8 slope ratio. Slope
// ratios at or below epsilon are floored at epsilon so near-flat cells stay
// finite. Cells that are no data in either input, or whose accumulation is
// not positive, are no data in the result.
func Wetness(flow *FlowGrid, slope *SlopeGrid, epsilon float64) *Grid {
	w := flow.like()
	for i, accumulation := range flow.values {
		tanBeta := slope.values[i]
		if math.IsNaN(accumulation) || math.IsNaN(tanBeta) {
			continue
		}
		if accumulation <= 0 {
			continue
		}
		w.values[i] = math.Log(accumulation / math.Max(tanBeta, epsilon))
	}
	return w
}
