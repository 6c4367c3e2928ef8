package viewport

import (
	"fmt"
	"time"
)

// Config sizes the grid. All lengths share the unit of the host Surface:
// CSS pixels for DefaultConfig, terminal cells for TerminalConfig.
type Config struct {
	TotalRows        int
	TotalCols        int
	DefaultRowHeight int
	DefaultColWidth  int
	HeaderHeight     int
	HeaderWidth      int
	Font             string

	CellPadding     int // text inset from the cell edge
	ResizeThreshold int // distance from a boundary that grabs a resize handle
	MinSize         int // smallest width or height a drag can produce
	ScrollbarSize   int
	MinThumb        int
	FillHandle      int // side of the square at the selection corner; 0 hides it
	VisibleBuffer   int // extra rows and columns drawn past the visible edge
	StatsRowCap     int // rows aggregated for status statistics

	AutoScrollZone  int // hot zone width along the data region edges
	AutoScrollSpeed int // scroll delta per tick at the very edge
	AutoScrollTick  time.Duration
}

// DefaultConfig suits a pixel surface.
func DefaultConfig() Config {
	return Config{
		TotalRows:        100000,
		TotalCols:        500,
		DefaultRowHeight: 25,
		DefaultColWidth:  100,
		HeaderHeight:     30,
		HeaderWidth:      50,
		Font:             "14px Arial",
		CellPadding:      5,
		ResizeThreshold:  5,
		MinSize:          20,
		ScrollbarSize:    12,
		MinThumb:         20,
		FillHandle:       5,
		VisibleBuffer:    2,
		StatsRowCap:      1000,
		AutoScrollZone:   30,
		AutoScrollSpeed:  20,
		AutoScrollTick:   16 * time.Millisecond,
	}
}

// TerminalConfig suits a character-cell surface.
func TerminalConfig() Config {
	cfg := DefaultConfig()
	cfg.DefaultRowHeight = 1
	cfg.DefaultColWidth = 10
	cfg.HeaderHeight = 1
	cfg.HeaderWidth = 6
	cfg.Font = ""
	cfg.CellPadding = 1
	cfg.ResizeThreshold = 1
	cfg.MinSize = 1
	cfg.ScrollbarSize = 1
	cfg.MinThumb = 1
	cfg.FillHandle = 0
	cfg.AutoScrollZone = 2
	cfg.AutoScrollSpeed = 2
	cfg.AutoScrollTick = 50 * time.Millisecond
	return cfg
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.TotalRows <= 0 || c.TotalCols <= 0:
		return fmt.Errorf("grid needs at least one row and column, got %dx%d", c.TotalRows, c.TotalCols)
	case c.DefaultRowHeight <= 0 || c.DefaultColWidth <= 0:
		return fmt.Errorf("default sizes must be positive, got row %d col %d", c.DefaultRowHeight, c.DefaultColWidth)
	case c.HeaderHeight < 0 || c.HeaderWidth < 0:
		return fmt.Errorf("header sizes must not be negative")
	case c.MinSize <= 0:
		return fmt.Errorf("min size must be positive, got %d", c.MinSize)
	case c.AutoScrollTick <= 0:
		return fmt.Errorf("auto-scroll tick must be positive")
	}
	return nil
}
