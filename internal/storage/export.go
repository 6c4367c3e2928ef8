package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/xuri/excelize/v2"

	"grider/internal/grid"
)

// SizeScale converts stored axis sizes to spreadsheet units: column widths
// to Excel characters and row heights to points.
type SizeScale struct {
	ColWidth  float64
	RowHeight float64
}

var (
	// PixelScale fits sizes measured in CSS pixels.
	PixelScale = SizeScale{ColWidth: 1.0 / 7, RowHeight: 0.75}
	// TerminalScale fits sizes measured in terminal cells.
	TerminalScale = SizeScale{ColWidth: 1, RowHeight: 15}
)

// loadGrid reads every non-empty cell. Returns the sparse grid and the
// max row/col index (-1 when empty).
func loadGrid(ctx context.Context, st Store) (map[[2]int]string, int, int, error) {
	recs, err := st.GetAll(ctx, Cells)
	if err != nil {
		return nil, -1, -1, err
	}
	g := map[[2]int]string{}
	maxR, maxC := -1, -1
	for _, rec := range recs {
		if rec.Value == "" {
			continue
		}
		r, c, ok := grid.ParseCellKey(rec.ID)
		if !ok {
			continue
		}
		g[[2]int{r, c}] = rec.Value
		if r > maxR {
			maxR = r
		}
		if c > maxC {
			maxC = c
		}
	}
	return g, maxR, maxC, nil
}

// ExportCSV writes the store's cells to a CSV file
func ExportCSV(ctx context.Context, st Store, filename string) error {
	g, maxR, maxC, err := loadGrid(ctx, st)
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if maxR < 0 || maxC < 0 {
		return nil
	}
	out := make([][]string, maxR+1)
	for r := 0; r <= maxR; r++ {
		row := make([]string, maxC+1)
		for c := 0; c <= maxC; c++ {
			row[c] = g[[2]int{r, c}]
		}
		out[r] = row
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(out); err != nil {
		return fmt.Errorf("error writing CSV: %w", err)
	}
	return f.Close()
}

// ImportCSV loads a CSV file into the store cell by cell. Returns the
// number of cells written.
func ImportCSV(ctx context.Context, st Store, filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("error reading CSV: %w", err)
	}
	n := 0
	for rIdx, row := range records {
		for cIdx, val := range row {
			if val == "" {
				continue
			}
			if err := st.Put(ctx, Cells, Record{ID: grid.CellKey(rIdx, cIdx), Value: val}); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// ExportXLSX writes cells, column widths and row heights to a workbook
// with a single sheet.
func ExportXLSX(ctx context.Context, st Store, filename string, scale SizeScale) error {
	g, _, _, err := loadGrid(ctx, st)
	if err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	keys := make([][2]int, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, k := range keys {
		name, err := excelize.CoordinatesToCellName(k[1]+1, k[0]+1)
		if err != nil {
			return err
		}
		var v any = g[k]
		if num, ok := grid.ParseNumber(g[k]); ok {
			v = num
		}
		if err := f.SetCellValue(sheet, name, v); err != nil {
			return err
		}
	}

	widths, err := st.GetAll(ctx, ColWidths)
	if err != nil {
		return err
	}
	for _, rec := range widths {
		idx, size, err := rec.Size()
		if err != nil {
			continue
		}
		col, err := excelize.ColumnNumberToName(idx + 1)
		if err != nil {
			continue
		}
		if err := f.SetColWidth(sheet, col, col, float64(size)*scale.ColWidth); err != nil {
			return err
		}
	}
	heights, err := st.GetAll(ctx, RowHeights)
	if err != nil {
		return err
	}
	for _, rec := range heights {
		idx, size, err := rec.Size()
		if err != nil {
			continue
		}
		if err := f.SetRowHeight(sheet, idx+1, float64(size)*scale.RowHeight); err != nil {
			return err
		}
	}
	return f.SaveAs(filename)
}

// ImportXLSX loads the first sheet's values into the store. Sizes are not
// imported.
func ImportXLSX(ctx context.Context, st Store, filename string) (int, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, err
	}
	n := 0
	for rIdx, row := range rows {
		for cIdx, val := range row {
			if val == "" {
				continue
			}
			if err := st.Put(ctx, Cells, Record{ID: grid.CellKey(rIdx, cIdx), Value: val}); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
