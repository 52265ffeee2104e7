package fuzzy

// Complement is the standard fuzzy negation.
func Complement(a float64) float64 {
	return 1 - a
}

// Union is the maximum of the degrees, 0 for an empty collection.
func Union(degrees []float64) float64 {
	u := 0.0
	for _, d := range degrees {
		if d > u {
			u = d
		}
	}
	return u
}

// Intersection is the minimum of the degrees, 1 for an empty collection.
func Intersection(degrees []float64) float64 {
	m := 1.0
	for _, d := range degrees {
		if d < m {
			m = d
		}
	}
	return m
}
