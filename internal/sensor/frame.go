package sensor

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"polybin/internal/models"
)

// BIN_STATUS field numbers as sent by the sensor MCU (SENSOR_1..SENSOR_4)
var binStatusFields = map[protowire.Number]models.WasteCategory{
	1: models.Biodegradable,
	2: models.NonBiodegradable,
	3: models.Recyclable,
	4: models.Hazardous,
}

// DecodeBinStatus parses one protobuf BIN_STATUS message. A zero byte where a
// tag is expected ends the message (the MCU pads frames with zeros). Absent
// fields keep the proto3 default of zero, but a frame without any sensor field
// is rejected. Either the whole frame is valid or an error is returned.
func DecodeBinStatus(frame []byte) (models.BinLevels, error) {
	var levels models.BinLevels

	b := frame
	fields := 0
	for len(b) > 0 {
		if b[0] == 0 {
			break
		}

		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return models.BinLevels{}, fmt.Errorf("%w: bad tag: %v", ErrMalformedFrame, protowire.ParseError(n))
		}
		b = b[n:]

		category, known := binStatusFields[num]
		if !known {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return models.BinLevels{}, fmt.Errorf("%w: bad field %d: %v", ErrMalformedFrame, num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		if typ != protowire.VarintType {
			return models.BinLevels{}, fmt.Errorf("%w: field %d has wire type %d", ErrMalformedFrame, num, typ)
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return models.BinLevels{}, fmt.Errorf("%w: truncated field %d: %v", ErrMalformedFrame, num, protowire.ParseError(n))
		}
		b = b[n:]

		levels[category] = float64(int32(v))
		fields++
	}

	if fields == 0 {
		return models.BinLevels{}, fmt.Errorf("%w: no sensor fields in %d bytes", ErrMalformedFrame, len(frame))
	}
	return levels, nil
}

// EncodeBinStatus builds a BIN_STATUS message the way the MCU does
func EncodeBinStatus(levels models.BinLevels) []byte {
	var b []byte
	for num := protowire.Number(1); num <= models.CategoryCount; num++ {
		v := int32(levels[binStatusFields[num]])
		if v == 0 {
			continue
		}
		b = protowire.AppendTag(b, num, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(v)))
	}
	return b
}
