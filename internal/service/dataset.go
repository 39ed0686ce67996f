package service

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tastevine/backend/internal/model"
)

// DataProcessor reads the scraped recipe dataset and prepares it for
// embedding generation.
type DataProcessor struct {
	csvPath string
}

// NewDataProcessor creates a DataProcessor for the given CSV file
func NewDataProcessor(csvPath string) *DataProcessor {
	return &DataProcessor{csvPath: csvPath}
}

// ProcessedData parses the dataset and returns one descriptive text per
// recipe alongside the full rows, index aligned. Missing cells render as
// empty strings and never fail a row; an unparseable file fails the whole
// call so the ingestion run aborts before any remote work.
func (p *DataProcessor) ProcessedData() ([]string, []model.RecipeRow, error) {
	f, err := os.Open(p.csvPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open recipe data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // scraped rows are sometimes ragged

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse recipe data: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("recipe data %s has no header row", p.csvPath)
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	texts := make([]string, 0, len(records)-1)
	rows := make([]model.RecipeRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := model.RecipeRow{
			Name:         cell(record, columns, "recipename"),
			TimeToCook:   cell(record, columns, "timetocook"),
			Ingredients:  cell(record, columns, "ingredients"),
			Instructions: cell(record, columns, "instructions"),
		}
		texts = append(texts, fmt.Sprintf("Recipe: %s. Ingredients: %s. TimeToCook: %s. Instructions: %s",
			row.Name, row.Ingredients, row.TimeToCook, row.Instructions))
		rows = append(rows, row)
	}

	log.Printf("Successfully processed %d recipes", len(rows))
	return texts, rows, nil
}

// cell returns the named column of a record, or "" when the column is
// missing from the header or the row is too short
func cell(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
