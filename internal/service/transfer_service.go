package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"stockroom/internal/dto"
	"stockroom/internal/model"
	"stockroom/internal/repository"
)

// exportColumns is the fixed CSV column order for export. Import recognizes
// the same names (header-derived), so an exported file round-trips through
// the ingestion pipeline.
var exportColumns = []string{
	"id", "name", "unit", "category", "brand",
	"stock", "status", "image", "created_at", "updated_at",
}

// TransferService moves product sets in and out of the store in bulk: JSON
// arrays and CSV uploads feed one shared ingestion routine; export renders
// the whole catalog as CSV.
type TransferService interface {
	BulkImport(ctx context.Context, records []dto.RawRecord) (*dto.ImportResponse, error)
	ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportResponse, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

type transferService struct {
	repo repository.ProductRepository
}

func NewTransferService(repo repository.ProductRepository) TransferService {
	return &transferService{repo: repo}
}

// BulkImport inserts a batch of raw records inside one transaction.
// Per-record tolerance: a missing/empty name skips the record, a unique-key
// collision drops it (ON CONFLICT DO NOTHING); neither aborts the batch.
// Any store failure rolls the whole batch back.
func (s *transferService) BulkImport(ctx context.Context, records []dto.RawRecord) (*dto.ImportResponse, error) {
	imported := 0
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for _, rec := range records {
			p, ok := normalizeRecord(rec)
			if !ok {
				continue // no name — silently skipped, not an error
			}
			written, err := s.repo.InsertIgnoreTx(tx, p)
			if err != nil {
				return err
			}
			if written {
				imported++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.ImportResponse{
		Received: len(records),
		Imported: imported,
		Skipped:  len(records) - imported,
	}, nil
}

// ImportCSV parses an uploaded delimited file into raw records keyed by the
// header row, then hands them to the exact same routine the JSON path uses.
func (s *transferService) ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportResponse, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err == io.EOF {
		return s.BulkImport(ctx, nil)
	}
	if err != nil {
		return nil, err
	}

	var records []dto.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := make(dto.RawRecord, len(header))
		for i, key := range header {
			if i < len(row) {
				rec[key] = row[i]
			}
		}
		records = append(records, rec)
	}

	return s.BulkImport(ctx, records)
}

// ExportCSV writes every product, ascending by id, with a fixed header row.
// encoding/csv applies RFC 4180 quoting: fields containing a comma, quote,
// or newline are wrapped in double quotes with inner quotes doubled.
func (s *transferService) ExportCSV(ctx context.Context, w io.Writer) error {
	products, err := s.repo.FindAllOrdered(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return err
	}
	for i := range products {
		if err := cw.Write(exportRow(&products[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(p *model.Product) []string {
	return []string{
		strconv.FormatUint(uint64(p.ID), 10),
		p.Name,
		derefOrEmpty(p.Unit),
		derefOrEmpty(p.Category),
		derefOrEmpty(p.Brand),
		strconv.Itoa(p.Stock),
		derefOrEmpty(p.Status),
		derefOrEmpty(p.Image),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	}
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// normalizeRecord coerces one raw record into a Product. Returns false when
// the record has no usable name ("NAME" is accepted for CSV files with an
// upper-cased header). Optional fields become nil when absent or empty;
// stock becomes 0 on absence or non-numeric input.
func normalizeRecord(rec dto.RawRecord) (*model.Product, bool) {
	name := stringValue(rec["name"])
	if name == "" {
		name = stringValue(rec["NAME"])
	}
	if name == "" {
		return nil, false
	}

	return &model.Product{
		Name:     name,
		Unit:     optionalString(rec["unit"]),
		Category: optionalString(rec["category"]),
		Brand:    optionalString(rec["brand"]),
		Stock:    coerceInt(rec["stock"]),
		Status:   optionalString(rec["status"]),
		Image:    optionalString(rec["image"]),
	}, true
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func optionalString(v any) *string {
	s := stringValue(v)
	if s == "" {
		return nil
	}
	return &s
}

func coerceInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return int(f)
	default:
		return 0
	}
}
