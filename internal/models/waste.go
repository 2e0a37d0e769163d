package models

import (
	"fmt"
	"strings"
	"time"
)

// WasteCategory is one of the four bins of the appliance
type WasteCategory int

const (
	Biodegradable WasteCategory = iota
	NonBiodegradable
	Recyclable
	Hazardous
)

// CategoryCount is the number of bins (and sensor channels)
const CategoryCount = 4

// NeutralAngle is the return position of axis 2 after every disposal
const NeutralAngle = 90

// AllCategories lists every category in sensor channel order
var AllCategories = [CategoryCount]WasteCategory{Biodegradable, NonBiodegradable, Recyclable, Hazardous}

// ServoAngles is the pair of angles (degrees) the two sorting axes move to
type ServoAngles struct {
	Axis1 int `json:"axis1"`
	Axis2 int `json:"axis2"`
}

type categoryInfo struct {
	name        string
	description string
	code        string // bin_type used in audit records and notifications
	action      string // manual control command
	visionClass string // class label emitted by the vision model
	sensorKey   string
	notifyByte  byte
	angles      ServoAngles
}

var categoryTable = [CategoryCount]categoryInfo{
	Biodegradable: {
		name: "Biodegradable", description: "Biodegradable", code: "bio", action: "BIO",
		visionClass: "Bio-degradable", sensorKey: "SENSOR_1", notifyByte: 'a',
		angles: ServoAngles{Axis1: 0, Axis2: 0},
	},
	NonBiodegradable: {
		name: "NonBiodegradable", description: "Non-Biodegradable", code: "non", action: "NON",
		visionClass: "Non-biodegradable", sensorKey: "SENSOR_2", notifyByte: 'b',
		angles: ServoAngles{Axis1: 90, Axis2: 0},
	},
	Recyclable: {
		name: "Recyclable", description: "Recyclable", code: "rec", action: "REC",
		visionClass: "Recyclable", sensorKey: "SENSOR_3", notifyByte: 'c',
		angles: ServoAngles{Axis1: 0, Axis2: 180},
	},
	Hazardous: {
		name: "Hazardous", description: "Dangerous/Hazardous", code: "haz", action: "HAZ",
		visionClass: "Hazardous", sensorKey: "SENSOR_4", notifyByte: 'd',
		angles: ServoAngles{Axis1: 90, Axis2: 180},
	},
}

// Valid reports whether c is one of the four known categories
func (c WasteCategory) Valid() bool {
	return c >= 0 && int(c) < CategoryCount
}

func (c WasteCategory) String() string {
	if !c.Valid() {
		return fmt.Sprintf("WasteCategory(%d)", int(c))
	}
	return categoryTable[c].name
}

// Description is the human readable label used in control responses
func (c WasteCategory) Description() string {
	if !c.Valid() {
		return "Unknown"
	}
	return categoryTable[c].description
}

// Code returns the short bin_type ("bio", "non", "rec", "haz")
func (c WasteCategory) Code() string {
	if !c.Valid() {
		return ""
	}
	return categoryTable[c].code
}

// SensorKey returns the sensor channel name, e.g. "SENSOR_1"
func (c WasteCategory) SensorKey() string {
	if !c.Valid() {
		return ""
	}
	return categoryTable[c].sensorKey
}

// NotificationByte returns the one-byte GSM command for this bin
func (c WasteCategory) NotificationByte() byte {
	if !c.Valid() {
		return 0
	}
	return categoryTable[c].notifyByte
}

// Angles returns the fixed servo positions for this bin
func (c WasteCategory) Angles() ServoAngles {
	if !c.Valid() {
		return ServoAngles{Axis1: NeutralAngle, Axis2: NeutralAngle}
	}
	return categoryTable[c].angles
}

// ParseVisionClass maps a vision model label to a category
func ParseVisionClass(class string) (WasteCategory, bool) {
	for i, info := range categoryTable {
		if strings.EqualFold(info.visionClass, class) {
			return WasteCategory(i), true
		}
	}
	return 0, false
}

// ParseAction maps a manual control command ("BIO", "NON", "REC", "HAZ") to a category
func ParseAction(action string) (WasteCategory, bool) {
	for i, info := range categoryTable {
		if strings.EqualFold(info.action, action) {
			return WasteCategory(i), true
		}
	}
	return 0, false
}

// Classification is one per-frame output of the vision service
type Classification struct {
	Category   WasteCategory
	Confidence float64
	Timestamp  time.Time
}
