package registry

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Expected sheet layout: header row, then url | priority | disabled. Extra
// columns are ignored.
const (
	colURL = iota
	colPriority
	colDisabled
)

// LoadXLSX reads an admin-maintained source sheet. The first sheet is used
// and the header row is skipped.
func LoadXLSX(path string) ([]SourceSeed, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("registry: xlsx has no sheets")
	}

	var seeds []SourceSeed
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue
		}
		cells := rowToStrings(row)
		if len(cells) == 0 || strings.TrimSpace(cells[colURL]) == "" {
			continue
		}

		seed := SourceSeed{URL: cells[colURL]}
		if len(cells) > colPriority {
			seed.Priority, err = parsePriority(cells[colPriority])
			if err != nil {
				return nil, eris.Wrapf(err, "registry: row %d", i+1)
			}
		}
		if len(cells) > colDisabled {
			seed.Disabled = parseBoolCell(cells[colDisabled])
		}
		seeds = append(seeds, seed)
	}

	return applyDefaults(seeds)
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func parseBoolCell(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
