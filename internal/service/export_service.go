package service

import (
	"fmt"
	"sort"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Check-ins"

// BuildCheckInWorkbook renders an experiment's check-in history as an xlsx
// workbook: a header row with Date, Notes and one column per field in
// display order, then one row per check-in in chronological order. Cell
// values keep their native type (numbers as numbers, yes/no as text).
func BuildCheckInWorkbook(experiment *db.Experiment, fields []db.Field, checkIns []db.CheckIn) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headers := []string{"Date", "Notes"}
	for _, field := range fields {
		headers = append(headers, field.Label)
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	ordered := make([]db.CheckIn, len(checkIns))
	copy(ordered, checkIns)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CheckinDate.Before(ordered[j].CheckinDate)
	})

	for rowIdx, checkIn := range ordered {
		row := rowIdx + 2

		values := []any{formatTrendDate(checkIn.CheckinDate), checkIn.Notes}
		for _, field := range fields {
			values = append(values, exportCellValue(field, checkIn.Responses))
		}

		for col, value := range values {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(exportSheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("write cell: %w", err)
			}
		}
	}

	return f, nil
}

func exportCellValue(field db.Field, responses []db.FieldResponse) any {
	for _, row := range responses {
		if row.FieldID != field.ID {
			continue
		}
		resp := ResponseFromRow(row)
		switch v := resp.Value.(type) {
		case TextValue:
			return v.Text
		case NumberValue:
			return v.Number
		case BoolValue:
			if v.Bool {
				return "yes"
			}
			return "no"
		case SelectValue:
			return v.Option
		}
	}
	return nil
}
