package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/slidecast/parser"
)

// writeXLSX emits one row per slide on the script sheet, with an empty
// narration column for script writers. parser.XLSXParser reads it back.
func writeXLSX(w io.Writer, deck Deck) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", parser.ScriptSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(parser.ScriptSheet, "A1", &parser.ScriptColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, s := range deck.Slides {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{s.FrameNumber, string(s.SlideType), s.Title, s.Content, ""}
		if err := f.SetSheetRow(parser.ScriptSheet, cell, &row); err != nil {
			return fmt.Errorf("writing slide %d: %w", s.FrameNumber, err)
		}
	}

	if err := f.SetColWidth(parser.ScriptSheet, "C", "C", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(parser.ScriptSheet, "D", "E", 64); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}
