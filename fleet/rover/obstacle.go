package rover

// Obstacle marks a single blocked cell
type Obstacle struct {
	At Coordinates `json:"at"`
}

// ObstacleAt returns an obstacle occupying c
func ObstacleAt(c Coordinates) Obstacle {
	return Obstacle{At: c}
}

// Blocks reports whether the obstacle occupies c
func (o Obstacle) Blocks(c Coordinates) bool {
	return o.At.Equals(c)
}
