package bulk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"kladovka/internal/database"
	"kladovka/internal/models"
)

const importNotes = "Bulk upload from CSV"

// Import reads a CSV with a header row and creates one item per valid data
// row through the regular creation path (identifier, code image, ledger row).
//
// Only "name" is required. A blank name fails that row and the batch moves
// on; a quantity that does not parse to a positive integer is silently
// replaced with 1 — a deliberate leniency kept from the original importer,
// not an oversight. Row numbers in error messages count the header as row 1.
func Import(ctx context.Context, db *database.DB, r io.Reader) (*models.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf(`CSV must have at least a "name" column`)
	}

	result := &models.ImportResult{}
	addError := func(rowNum int, msg string) {
		result.ErrorCount++
		if len(result.Errors) < models.MaxImportErrors {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", rowNum, msg))
		}
	}

	field := func(record []string, column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	rowNum := 1 // header is row 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			// Malformed rows fail individually; anything else is the
			// stream itself dying and re-reading it would never end.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				addError(rowNum, err.Error())
				continue
			}
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}

		name := field(record, "name")
		if name == "" {
			addError(rowNum, "name is required")
			continue
		}

		item := models.Item{
			Name:        name,
			Description: field(record, "description"),
			Category:    field(record, "category"),
			Location:    field(record, "location"),
			Quantity:    parseQuantity(field(record, "quantity")),
		}

		if err := db.CreateItem(ctx, &item, importNotes); err != nil {
			addError(rowNum, err.Error())
			continue
		}
		result.Added++
	}

	return result, nil
}

// parseQuantity coerces the raw value to a positive integer, defaulting to 1
// on anything malformed or non-positive. No error by design.
func parseQuantity(raw string) int64 {
	if raw == "" {
		return models.DefaultQuantity
	}
	quantity, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || quantity < 1 {
		return models.DefaultQuantity
	}
	return quantity
}
