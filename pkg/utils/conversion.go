package utils

import "strconv"

// ParseLimit mengubah query ?limit= jadi angka dalam rentang 1..max.
// Kosong / tidak valid = def.
func ParseLimit(str string, def, max int) int {
	val, err := strconv.Atoi(str)
	if err != nil || val <= 0 {
		return def
	}
	if val > max {
		return max
	}
	return val
}
