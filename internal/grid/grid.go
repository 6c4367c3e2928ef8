package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CellRef addresses a single cell by 0-based row and column.
type CellRef struct {
	Row int
	Col int
}

func (c CellRef) String() string {
	return ColRowToName(c.Col, c.Row)
}

// Range is an inclusive rectangle of cell indices.
type Range struct {
	StartRow int
	EndRow   int
	StartCol int
	EndCol   int
}

// Contains reports whether (row, col) lies inside r.
func (r Range) Contains(row, col int) bool {
	return row >= r.StartRow && row <= r.EndRow && col >= r.StartCol && col <= r.EndCol
}

// Empty reports whether the range holds no cells.
func (r Range) Empty() bool {
	return r.EndRow < r.StartRow || r.EndCol < r.StartCol
}

// Cells returns the number of cells covered by r.
func (r Range) Cells() int {
	if r.Empty() {
		return 0
	}
	return (r.EndRow - r.StartRow + 1) * (r.EndCol - r.StartCol + 1)
}

// Normalize returns the rectangle spanned by a and b.
func Normalize(a, b CellRef) (start, end CellRef) {
	start = CellRef{Row: min(a.Row, b.Row), Col: min(a.Col, b.Col)}
	end = CellRef{Row: max(a.Row, b.Row), Col: max(a.Col, b.Col)}
	return start, end
}

// CellKey is the storage id of a cell: "row:col".
func CellKey(row, col int) string {
	return strconv.Itoa(row) + ":" + strconv.Itoa(col)
}

// ParseCellKey is the inverse of CellKey.
func ParseCellKey(key string) (row, col int, ok bool) {
	rs, cs, found := strings.Cut(key, ":")
	if !found {
		return 0, 0, false
	}
	r, err := strconv.Atoi(rs)
	if err != nil || r < 0 {
		return 0, 0, false
	}
	c, err := strconv.Atoi(cs)
	if err != nil || c < 0 {
		return 0, 0, false
	}
	return r, c, true
}

// ColToName: 0 -> A, 25 -> Z, 26 -> AA and so on
func ColToName(col int) string {
	if col < 0 {
		return "?"
	}
	result := ""
	n := col + 1
	for n > 0 {
		n--
		result = string(rune('A'+(n%26))) + result
		n /= 26
	}
	return result
}

// ColRowToName builds cell name from 0-based col,row -> e.g., col 0,row0 -> "A1"
func ColRowToName(col, row int) string {
	return fmt.Sprintf("%s%d", ColToName(col), row+1)
}

// ParseCellRef parses names like A1, AA10 returning 0-based (row, col)
// Accepts sheet prefixes like Sheet!A1 and removes $ signs.
func ParseCellRef(name string) (int, int, bool) {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "!"); idx != -1 {
		name = strings.TrimSpace(name[idx+1:])
	}
	name = strings.ReplaceAll(name, "$", "")
	if name == "" {
		return 0, 0, false
	}

	i := 0
	for i < len(name) && isLetter(name[i]) {
		i++
	}
	if i == 0 || i >= len(name) {
		return 0, 0, false
	}
	// at most 7 letters keeps the column inside int range on 32-bit builds
	if i > 7 {
		return 0, 0, false
	}
	colPart := strings.ToUpper(name[:i])
	rowPart := name[i:]
	for j := 0; j < len(rowPart); j++ {
		if !isDigit(rowPart[j]) {
			return 0, 0, false
		}
	}
	col := 0
	for j := 0; j < len(colPart); j++ {
		col = col*26 + int(colPart[j]-'A') + 1
	}
	col = col - 1
	rowNum, err := strconv.Atoi(rowPart)
	if err != nil {
		return 0, 0, false
	}
	row := rowNum - 1
	if row < 0 || col < 0 {
		return 0, 0, false
	}
	return row, col, true
}

// ParseAddress parses an A1-style address and rejects anything outside
// totalRows x totalCols.
func ParseAddress(name string, totalRows, totalCols int) (CellRef, bool) {
	row, col, ok := ParseCellRef(name)
	if !ok || row >= totalRows || col >= totalCols {
		return CellRef{}, false
	}
	return CellRef{Row: row, Col: col}, true
}

// IsNumeric reports whether s reads as a plain number.
func IsNumeric(s string) bool {
	_, ok := ParseNumber(s)
	return ok
}

// ParseNumber parses a cell value as a float, ignoring surrounding blanks.
// Words such as "nan" and "inf" are text, not numbers.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
func isDigit(b byte) bool {
	return (b >= '0' && b <= '9')
}
