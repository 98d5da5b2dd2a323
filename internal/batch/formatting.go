package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/cardscan/internal/card"
)

var csvHeader = []string{"file", "name", "email", "phone", "address", "address_like", "error"}

type jsonItem struct {
	File   string       `json:"file"`
	ID     uint         `json:"id,omitempty"`
	Record *card.Record `json:"record,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// formatBatchResults formats the batch results in the specified format.
func formatBatchResults(items []Item, format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(items)
	case FormatCSV:
		return formatCSV(items)
	case FormatText, "":
		return formatText(items), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// formatJSON formats results as JSON.
func formatJSON(items []Item) (string, error) {
	out := struct {
		Cards []jsonItem `json:"cards"`
	}{Cards: make([]jsonItem, len(items))}

	for i, it := range items {
		ji := jsonItem{File: it.File, ID: it.ID}
		if it.Err != nil {
			ji.Error = it.Err.Error()
		} else {
			rec := it.Record()
			ji.Record = &rec
		}
		out.Cards[i] = ji
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

// formatCSV formats results as CSV, one row per card.
func formatCSV(items []Item) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}

	for _, it := range items {
		row := []string{it.File, "", "", "", "", "", ""}
		if it.Err != nil {
			row[6] = it.Err.Error()
		} else {
			rec := it.Record()
			row[1] = rec.Name
			row[2] = rec.Email
			row[3] = rec.Phone
			row[4] = rec.Address
			row[5] = strconv.FormatBool(card.IsAddressLine(rec.Address))
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats results as plain text.
func formatText(items []Item) string {
	var output strings.Builder
	for i, it := range items {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", it.File)
		if it.Err != nil {
			fmt.Fprintf(&output, "error: %v\n", it.Err)
			continue
		}
		rec := it.Record()
		fmt.Fprintf(&output, "Name:    %s\n", rec.Name)
		fmt.Fprintf(&output, "Email:   %s\n", orNone(rec.Email))
		fmt.Fprintf(&output, "Phone:   %s\n", orNone(rec.Phone))
		fmt.Fprintf(&output, "Address: %s\n", rec.Address)
	}
	return output.String()
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
