package kline

import (
	"github.com/jd3nn1s/kw1281"
	"github.com/pkg/errors"
)

// each value in a measuring group block is a formula byte and two operands
const measurementSize = 3

type formula func(a, b float64) kw1281.Measurement

func intValue(units string, v float64) kw1281.Measurement {
	return kw1281.Measurement{Type: kw1281.MeasurementTypeInt, IntVal: int(v), Units: units}
}

func floatValue(units string, v float64) kw1281.Measurement {
	return kw1281.Measurement{Type: kw1281.MeasurementTypeFloat, FloatVal: v, Units: units}
}

var formulas = map[byte]formula{
	1: func(a, b float64) kw1281.Measurement {
		return intValue("RPM", 0.2*a*b)
	},
	2: func(a, b float64) kw1281.Measurement {
		return floatValue("%", 0.002*a*b)
	},
	5: func(a, b float64) kw1281.Measurement {
		return floatValue("C", 0.1*a*b-10*a)
	},
	6: func(a, b float64) kw1281.Measurement {
		return floatValue("V", 0.001*a*b)
	},
	7: func(a, b float64) kw1281.Measurement {
		return intValue("km/h", 0.01*a*b)
	},
	8: func(a, b float64) kw1281.Measurement {
		return floatValue("-", 0.1*a*b)
	},
	15: func(a, b float64) kw1281.Measurement {
		return intValue("ms", 0.01*a*b)
	},
}

// DecodeGroup converts a measuring group block into its values, in block
// order. Values with an unknown formula are returned with an empty Units.
func DecodeGroup(blk *kw1281.Block) ([]kw1281.Measurement, error) {
	if blk.Type != kw1281.BlockTypeGroup {
		return nil, errors.Errorf("block type %#x is not a measuring group", byte(blk.Type))
	}
	if len(blk.Data)%measurementSize != 0 {
		return nil, errors.Errorf("measuring group of %d bytes is not a multiple of %d",
			len(blk.Data), measurementSize)
	}
	var out []kw1281.Measurement
	for i := 0; i < len(blk.Data); i += measurementSize {
		fn, ok := formulas[blk.Data[i]]
		if !ok {
			out = append(out, kw1281.Measurement{})
			continue
		}
		out = append(out, fn(float64(blk.Data[i+1]), float64(blk.Data[i+2])))
	}
	return out, nil
}
