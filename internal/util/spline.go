package util

// SplinePoint - опорная точка кусочно-линейного сплайна
type SplinePoint struct {
	X, Y float64
}

// Spline - кусочно-линейная функция, ограниченная крайними точками
type Spline []SplinePoint

// Сплайны рельефа
var (
	ContinentalnessSpline = Spline{
		{-1.0, -40.0}, {-0.45, -20.0}, {-0.2, -2.0}, {-0.1, -1.0}, {0.15, 2.0},
		{0.3, 8.0}, {0.5, 10.0}, {0.7, 18.0}, {0.8, 20.0}, {1.0, 30.0},
	}

	ErosionSpline = Spline{
		{-1.0, 1.0}, {-0.8, 0.9}, {-0.38, 0.8}, {-0.22, 0.6},
		{0.05, 0.5}, {0.45, 0.4}, {0.9, 0.2}, {1.0, 0.1},
	}

	PeaksValleysSpline = Spline{
		{-1.0, -30.0}, {-0.9, 0.0}, {-0.2, 2.0}, {0.2, 10.0},
		{0.6, 30.0}, {0.9, 60.0}, {1.0, 60.0},
	}
)

// Sample возвращает значение сплайна в точке x
func (s Spline) Sample(x float64) float64 {
	if len(s) == 0 {
		return 0
	}
	if x <= s[0].X {
		return s[0].Y
	}
	last := s[len(s)-1]
	if x >= last.X {
		return last.Y
	}
	for i := 1; i < len(s); i++ {
		if x <= s[i].X {
			a, b := s[i-1], s[i]
			t := (x - a.X) / (b.X - a.X)
			return Lerp(a.Y, b.Y, t)
		}
	}
	return last.Y
}

// Lerp - линейная интерполяция между a и b
func Lerp(a, b, t float64) float64 {
	return a + float64((b-a)*t)
}
