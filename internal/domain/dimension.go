package domain

// Dimension is one named axis of behavior being scored.
// the set is closed: submissions carrying any other key are rejected
// at validation time instead of being silently dropped.
type Dimension string

const (
	DimensionCultural      Dimension = "cultural"
	DimensionSocial        Dimension = "social"
	DimensionEnvironmental Dimension = "environmental"
)

// Dimensions returns the recognized dimensions in canonical order.
// iteration over this slice keeps combined-score arithmetic deterministic.
func Dimensions() []Dimension {
	return []Dimension{DimensionCultural, DimensionSocial, DimensionEnvironmental}
}

// ParseDimension parses a string into a Dimension.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions() {
		if s == string(d) {
			return d, nil
		}
	}
	return "", &UnknownDimensionError{Name: s}
}

// String returns the string representation of the Dimension.
func (d Dimension) String() string {
	return string(d)
}

// DefaultWeights returns the combination weight per dimension.
// weights only influence the combined overall score, never the stored
// per-dimension averages.
func DefaultWeights() map[Dimension]float64 {
	return map[Dimension]float64{
		DimensionCultural:      1,
		DimensionSocial:        1,
		DimensionEnvironmental: 2,
	}
}
