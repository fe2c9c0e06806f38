//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package axml

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType is the type byte of a typed attribute value (Res_value.dataType)
type ValueType uint8

const (
	TypeNull      ValueType = 0x00
	TypeReference ValueType = 0x01
	TypeAttribute ValueType = 0x02
	TypeString    ValueType = 0x03
	TypeFloat     ValueType = 0x04
	TypeDimension ValueType = 0x05
	TypeFraction  ValueType = 0x06
	TypeIntDec    ValueType = 0x10
	TypeIntHex    ValueType = 0x11
	TypeIntBool   ValueType = 0x12
	TypeARGB8     ValueType = 0x1c
	TypeRGB8      ValueType = 0x1d
	TypeARGB4     ValueType = 0x1e
	TypeRGB4      ValueType = 0x1f
)

const complexUnitMask = 0xF

var (
	radixMults     = [4]float32{0.00390625, 3.051758e-05, 1.192093e-07, 4.656613e-10}
	dimensionUnits = [8]string{"px", "dip", "sp", "pt", "in", "mm", "", ""}
	fractionUnits  = [8]string{"%", "%p", "", "", "", "", "", ""}
)

// FormatValue renders the typed value of an attribute as text. It never fails;
// unrecognized types produce a diagnostic placeholder.
func FormatValue(a Attribute) string {
	data := a.Data
	udata := uint32(data)
	switch a.Type {
	case TypeString:
		return a.RawValue
	case TypeReference:
		return "@" + resourceIDName(udata) + " (0x" + strconv.FormatUint(uint64(udata), 16) + ")"
	case TypeAttribute:
		return "?" + resourceIDName(udata) + " (0x" + strconv.FormatUint(uint64(udata), 16) + ")"
	case TypeIntDec:
		return strconv.FormatInt(int64(data), 10)
	case TypeIntHex:
		return "0x" + strconv.FormatUint(uint64(udata), 16)
	case TypeIntBool:
		if data != 0 {
			return "true"
		}
		return "false"
	case TypeDimension:
		return javaFloat(complexToFloat(data)) + unit(dimensionUnits, udata)
	case TypeFraction:
		return javaFloat(complexToFloat(data)) + unit(fractionUnits, udata)
	case TypeFloat:
		return javaFloat(math.Float32frombits(udata))
	case TypeARGB8:
		return fmt.Sprintf("#%08X", udata)
	case TypeRGB8:
		return fmt.Sprintf("#%06X", udata&0xFFFFFF)
	case TypeARGB4:
		return fmt.Sprintf("#%04X", udata&0xFFFF)
	case TypeRGB4:
		return fmt.Sprintf("#%03X", udata&0xFFF)
	default:
		return fmt.Sprintf("<0x%x, type 0x%x>", udata, uint8(a.Type))
	}
}

// resource names are not resolved, only the raw id is shown
func resourceIDName(id uint32) string {
	if id == 0 {
		return "null"
	}
	return fmt.Sprintf("%08X", id)
}

func unit(table [8]string, data uint32) string {
	i := data & complexUnitMask
	if int(i) >= len(table) {
		return ""
	}
	return table[i]
}

// complexToFloat decodes a complex (dimension or fraction) value: a signed
// 24-bit mantissa in the top bits scaled by one of four radixes.
func complexToFloat(data int32) float32 {
	mantissa := int32(uint32(data) & 0xFFFFFF00)
	return float32(mantissa) * radixMults[(data>>4)&3]
}

// javaFloat formats f the way java.lang.Float.toString does: shortest digits
// that round-trip, always with a fractional part, and scientific notation
// outside [1e-3, 1e7).
func javaFloat(f float32) string {
	switch {
	case math.IsNaN(float64(f)):
		return "NaN"
	case math.IsInf(float64(f), 1):
		return "Infinity"
	case math.IsInf(float64(f), -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(float64(f)) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := f
	sign := ""
	if f < 0 {
		abs = -f
		sign = "-"
	}
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(float64(abs), 'f', -1, 32)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return sign + s
	}
	// d.ddde±xx
	s := strconv.FormatFloat(float64(abs), 'e', -1, 32)
	mant, exp, _ := strings.Cut(s, "e")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return sign + mant + "E" + strconv.Itoa(e)
}
