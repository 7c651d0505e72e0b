// Package export writes the grievance dataset to its published formats.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	devenv "bbmp-grievances/dev/env"
	"bbmp-grievances/internal/grievance"
	"bbmp-grievances/lib/telemetry"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/gzip"
	"github.com/parquet-go/parquet-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("internal/export")

const (
	ParquetName     = "citizen-grievances.parquet"
	CSVName         = "citizen-grievances.csv.gz"
	FullParquetName = "citizen-grievances-full.parquet"
)

// writeAtomic writes `path` through a temporary file in the same directory
// so that readers never observe a partial file.
func writeAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = write(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeParquet[T any](path string, rows []T) error {
	return writeAtomic(path, func(w io.Writer) error {
		return parquet.Write(w, rows, parquet.Compression(&parquet.Snappy))
	})
}

// WriteParquet writes the published columns of `records`.
func WriteParquet(path string, records []grievance.Record) error {
	rows := make([]ParquetRow, len(records))
	for i, r := range records {
		rows[i] = ToParquetRow(r)
	}
	return writeParquet(path, rows)
}

// WriteFullParquet writes every parsed field of `records`.
func WriteFullParquet(path string, records []grievance.Record) error {
	rows := make([]FullRow, len(records))
	for i, r := range records {
		rows[i] = ToFullRow(r)
	}
	return writeParquet(path, rows)
}

// WriteCSVGzip writes the published columns of `records` as a gzipped CSV
// file with a header row.
func WriteCSVGzip(path string, records []grievance.Record) error {
	rows := make([]CSVRow, len(records))
	for i, r := range records {
		rows[i] = ToCSVRow(r)
	}
	return writeAtomic(path, func(w io.Writer) error {
		zw := gzip.NewWriter(w)
		// an empty export still carries the header row
		if len(rows) == 0 {
			err := writeHeader(zw)
			if err != nil {
				return err
			}
			return zw.Close()
		}
		err := gocsv.Marshal(rows, zw)
		if err != nil {
			return err
		}
		return zw.Close()
	})
}

func writeHeader(w io.Writer) error {
	writer := gocsv.DefaultCSVWriter(w)
	err := writer.Write(grievance.Columns)
	if err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func ReadParquet(path string) ([]grievance.Record, error) {
	rows, err := parquet.ReadFile[ParquetRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]grievance.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out, nil
}

func ReadFullParquet(path string) ([]FullRow, error) {
	return parquet.ReadFile[FullRow](path)
}

func ReadCSVGzip(path string) ([]CSVRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	var rows []CSVRow
	err = gocsv.UnmarshalBytes(body, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Outputs are the files written by WriteAll.
type Outputs struct {
	Parquet     string
	CSV         string
	FullParquet string
}

// Files lists the written paths, FullParquet only if it was written.
func (o Outputs) Files() []string {
	files := []string{o.Parquet, o.CSV}
	if o.FullParquet != "" {
		files = append(files, o.FullParquet)
	}
	return files
}

// WriteAll writes every output into `dir`, which may use the <dev_state>
// prefix. The full parquet file is only written when `full` is set.
func WriteAll(ctx context.Context, dir string, records []grievance.Record, full bool) (Outputs, error) {
	_, span := tracer.Start(ctx, "WriteAll")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(records)))

	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return Outputs{}, err
	}
	out := Outputs{
		Parquet: filepath.Join(dir, ParquetName),
		CSV:     filepath.Join(dir, CSVName),
	}
	err = WriteParquet(out.Parquet, records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write parquet")
		return Outputs{}, err
	}
	err = WriteCSVGzip(out.CSV, records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write csv")
		return Outputs{}, err
	}
	if full {
		out.FullParquet = filepath.Join(dir, FullParquetName)
		err = WriteFullParquet(out.FullParquet, records)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to write full parquet")
			return Outputs{}, err
		}
	}
	return out, nil
}
