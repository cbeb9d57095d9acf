package bulk

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"kladovka/internal/database"
	"kladovka/internal/models"

	"github.com/xuri/excelize/v2"
)

// exportColumns is the fixed column order of the inventory projection.
var exportColumns = []string{"id", "name", "description", "category", "location", "quantity", "created_at", "updated_at"}

// ExportCSV writes the full inventory, ordered by name, no filtering.
func ExportCSV(ctx context.Context, db *database.DB, w io.Writer) error {
	items, err := db.SearchItems(ctx, models.ItemFilter{})
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.ID,
			item.Name,
			item.Description,
			item.Category,
			item.Location,
			strconv.FormatInt(item.Quantity, 10),
			item.CreatedAt.Format(time.RFC3339),
			item.UpdatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportExcel создает Excel файл с той же проекцией, что и CSV экспорт.
func ExportExcel(ctx context.Context, db *database.DB, w io.Writer) error {
	items, err := db.SearchItems(ctx, models.ItemFilter{})
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Inventory"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, item := range items {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), item.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), item.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), item.Description)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), item.Category)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), item.Location)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), item.Quantity)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), item.CreatedAt.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), item.UpdatedAt.Format("02.01.2006 15:04"))
	}

	// Настраиваем ширину колонок
	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "C", 30)
	_ = f.SetColWidth(sheetName, "D", "E", 15)
	_ = f.SetColWidth(sheetName, "F", "F", 10)
	_ = f.SetColWidth(sheetName, "G", "H", 20)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

// Template writes a sample CSV users can fill in for bulk upload.
func Template(w io.Writer) error {
	rows := [][]string{
		{"name", "description", "category", "location", "quantity"},
		{"Screwdriver Set", "Phillips and flathead screwdrivers", "Tools", "Garage", "1"},
		{"Laptop Charger", "Dell 65W USB-C charger", "Electronics", "Office", "2"},
		{"First Aid Kit", "Emergency medical supplies", "Safety", "Car", "1"},
		{"Bluetooth Speaker", "Portable wireless speaker", "Electronics", "Home", "1"},
	}

	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return writer.Error()
}
