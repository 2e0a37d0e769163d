package models

// DefaultBinLevel is the reading assumed for every bin before the first sensor read
const DefaultBinLevel = 40

// BinLevels holds one distance reading per bin, indexed by WasteCategory.
// Lower values mean a fuller bin.
type BinLevels [CategoryCount]float64

// DefaultBinLevels returns the "all bins empty" snapshot
func DefaultBinLevels() BinLevels {
	var levels BinLevels
	for i := range levels {
		levels[i] = DefaultBinLevel
	}
	return levels
}

// Level returns the reading for a category
func (l BinLevels) Level(c WasteCategory) float64 {
	if !c.Valid() {
		return 0
	}
	return l[c]
}

// IsFull reports whether the bin for c is at or below the fill threshold
func (l BinLevels) IsFull(c WasteCategory, threshold float64) bool {
	return l.Level(c) <= threshold
}

// SensorMap renders the levels keyed by sensor channel, the shape the dashboard expects
func (l BinLevels) SensorMap() map[string]float64 {
	m := make(map[string]float64, CategoryCount)
	for _, c := range AllCategories {
		m[c.SensorKey()] = l[c]
	}
	return m
}
