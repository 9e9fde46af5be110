package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a float64 that also accepts numeric strings from spreadsheet-backed replies.
// Empty, unparsable or non-finite values decode to 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(parseLoose(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(finite(f))
	return nil
}

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// Ptr returns a pointer to a Number holding f.
func Ptr(f float64) *Number {
	n := Number(f)
	return &n
}

// parseLoose strips thousands separators and whitespace before parsing.
func parseLoose(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

// finite maps NaN and ±Inf to 0. ParseFloat accepts "NaN" and "inf".
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
