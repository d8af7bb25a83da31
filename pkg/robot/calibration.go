package robot

// AxisCalibration maps one servo's raw position range onto [-100, 100].
type AxisCalibration struct {
	ID int `yaml:"id" json:"id"`
	// DriveMode 1 inverts the axis.
	DriveMode int `yaml:"drive_mode" json:"drive_mode"`
	// Rest is the raw position the spring returns to. Zero means the middle of the range.
	Rest     int `yaml:"rest,omitempty" json:"rest,omitempty"`
	RangeMin int `yaml:"range_min" json:"range_min"`
	RangeMax int `yaml:"range_max" json:"range_max"`
}

// Calibration holds one entry per axis.
type Calibration map[Axis]AxisCalibration

// Center returns the raw rest position.
func (c AxisCalibration) Center() int {
	if c.Rest != 0 {
		return c.Rest
	}
	return c.RangeMin + (c.RangeMax-c.RangeMin)/2
}

// Normalize converts a raw position into [-100, 100], with the rest position
// at 0. Each side of the rest position is scaled independently so an
// off-centre spring still reaches full deflection.
func (c AxisCalibration) Normalize(raw int) float64 {
	if c.RangeMax <= c.RangeMin {
		return 0
	}
	if raw < c.RangeMin {
		raw = c.RangeMin
	}
	if raw > c.RangeMax {
		raw = c.RangeMax
	}

	center := c.Center()
	var n float64
	switch {
	case raw >= center && c.RangeMax > center:
		n = float64(raw-center) / float64(c.RangeMax-center) * 100
	case raw < center && center > c.RangeMin:
		n = float64(raw-center) / float64(center-c.RangeMin) * 100
	}
	if c.DriveMode == 1 {
		n = -n
	}
	return n
}

// IDs returns the servo IDs in axis order.
func (c Calibration) IDs() []int {
	ids := make([]int, 0, len(c))
	for _, a := range AllAxes() {
		if ac, ok := c[a]; ok {
			ids = append(ids, ac.ID)
		}
	}
	return ids
}

// ByID returns the axis and calibration for a servo ID.
func (c Calibration) ByID(id int) (Axis, AxisCalibration, bool) {
	for a, ac := range c {
		if ac.ID == id {
			return a, ac, true
		}
	}
	return "", AxisCalibration{}, false
}

// Complete reports whether every axis has a usable range.
func (c Calibration) Complete() bool {
	for _, a := range AllAxes() {
		ac, ok := c[a]
		if !ok || ac.RangeMax <= ac.RangeMin {
			return false
		}
	}
	return true
}
