package geostore

import "strings"

// NormalizeStateFIPS zero-pads a state FIPS code to 2 digits.
func NormalizeStateFIPS(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	for len(code) < 2 {
		code = "0" + code
	}
	return code
}

// NormalizeCountyFIPS zero-pads a county FIPS code to 3 digits.
func NormalizeCountyFIPS(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	for len(code) < 3 {
		code = "0" + code
	}
	return code
}

// CombineFIPS joins state and county FIPS codes into the 5-digit form.
func CombineFIPS(state, county string) string {
	s := NormalizeStateFIPS(state)
	c := NormalizeCountyFIPS(county)
	if s == "" || c == "" {
		return ""
	}
	return s + c
}
