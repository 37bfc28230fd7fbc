package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Header is the fixed column order of the canonical CSV table.
// It must not change without versioning: downstream analysis, diffs and
// golden files all depend on it byte for byte.
var Header = []string{
	"id", "pack", "mode",
	MetricContractAdherence,
	MetricHallucinationRate,
	MetricCitationPrecision,
	MetricCitationRecall,
	MetricAbstainRate,
	MetricLatencyMS,
}

// WriteCSV writes the table in the canonical CSV format.
// Rates are printed with four decimals and latency with one; the
// formatting is part of the schema so that identical tables serialize to
// identical bytes.
func WriteCSV(w io.Writer, records []Evaluation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ID, r.Pack, r.Mode,
			fmt.Sprintf("%.4f", r.ContractAdherence),
			fmt.Sprintf("%.4f", r.HallucinationRate),
			fmt.Sprintf("%.4f", r.CitationPrecision),
			fmt.Sprintf("%.4f", r.CitationRecall),
			fmt.Sprintf("%.4f", r.AbstainRate),
			fmt.Sprintf("%.1f", r.LatencyMS),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %q: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a canonical CSV table, validating the header and every
// row's numeric domain. The first schema violation aborts the read.
func ReadCSV(r io.Reader) ([]Evaluation, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(Header) {
		return nil, fmt.Errorf("header has %d columns, want %d", len(header), len(Header))
	}
	for i, col := range Header {
		if header[i] != col {
			return nil, fmt.Errorf("header column %d is %q, want %q", i, header[i], col)
		}
	}

	var records []Evaluation
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (Evaluation, error) {
	rec := Evaluation{ID: row[0], Pack: row[1], Mode: row[2]}
	fields := []struct {
		name string
		dst  *float64
	}{
		{MetricContractAdherence, &rec.ContractAdherence},
		{MetricHallucinationRate, &rec.HallucinationRate},
		{MetricCitationPrecision, &rec.CitationPrecision},
		{MetricCitationRecall, &rec.CitationRecall},
		{MetricAbstainRate, &rec.AbstainRate},
		{MetricLatencyMS, &rec.LatencyMS},
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(row[3+i], 64)
		if err != nil {
			return Evaluation{}, &SchemaError{ID: rec.ID, Field: f.name, Reason: "not numeric"}
		}
		*f.dst = v
	}
	return rec, nil
}
