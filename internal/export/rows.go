package export

import (
	"time"

	"bbmp-grievances/internal/grievance"
	"bbmp-grievances/lib/timezone"
)

// CSVDateLayout is how grievance dates are written to the CSV export, in IST.
const CSVDateLayout = "2006-01-02 15:04:05"

// ParquetRow is a row of the published parquet dataset.
type ParquetRow struct {
	ComplaintID   string    `parquet:"Complaint ID"`
	Category      *string   `parquet:"Category,optional"`
	SubCategory   *string   `parquet:"Sub Category,optional"`
	GrievanceDate time.Time `parquet:"Grievance Date,optional,timestamp(millisecond)"`
	WardName      *string   `parquet:"Ward Name,optional"`
	Status        *string   `parquet:"Grievance Status,optional"`
	StaffRemarks  *string   `parquet:"Staff Remarks,optional"`
	StaffName     *string   `parquet:"Staff Name,optional"`
}

// FullRow is ParquetRow plus the fields that are never published.
type FullRow struct {
	ComplaintID    string    `parquet:"Complaint ID"`
	Category       *string   `parquet:"Category,optional"`
	SubCategory    *string   `parquet:"Sub Category,optional"`
	Description    *string   `parquet:"Description,optional"`
	GrievanceDate  time.Time `parquet:"Grievance Date,optional,timestamp(millisecond)"`
	WardName       *string   `parquet:"Ward Name,optional"`
	Address        *string   `parquet:"Address,optional"`
	Status         *string   `parquet:"Grievance Status,optional"`
	StaffRemarks   *string   `parquet:"Staff Remarks,optional"`
	StaffName      *string   `parquet:"Staff Name,optional"`
	ContactDetails *string   `parquet:"Contact Details,optional"`
	Image          *string   `parquet:"Image,optional"`
	StaffImage     *string   `parquet:"Staff Recent Added Image,optional"`
}

// CSVRow is a row of the CSV export, missing values are empty cells.
type CSVRow struct {
	ComplaintID   string `csv:"Complaint ID"`
	Category      string `csv:"Category"`
	SubCategory   string `csv:"Sub Category"`
	GrievanceDate string `csv:"Grievance Date"`
	WardName      string `csv:"Ward Name"`
	Status        string `csv:"Grievance Status"`
	StaffRemarks  string `csv:"Staff Remarks"`
	StaffName     string `csv:"Staff Name"`
}

// dateColumn is the parquet value of a grievance date, the zero time is
// written as null.
func dateColumn(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Millisecond)
}

func dateField(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func ToParquetRow(r grievance.Record) ParquetRow {
	return ParquetRow{
		ComplaintID:   r.ComplaintID,
		Category:      r.Category,
		SubCategory:   r.SubCategory,
		GrievanceDate: dateColumn(r.GrievanceDate),
		WardName:      r.WardName,
		Status:        r.Status,
		StaffRemarks:  r.StaffRemarks,
		StaffName:     r.StaffName,
	}
}

func ToFullRow(r grievance.Record) FullRow {
	return FullRow{
		ComplaintID:    r.ComplaintID,
		Category:       r.Category,
		SubCategory:    r.SubCategory,
		Description:    r.Description,
		GrievanceDate:  dateColumn(r.GrievanceDate),
		WardName:       r.WardName,
		Address:        r.Address,
		Status:         r.Status,
		StaffRemarks:   r.StaffRemarks,
		StaffName:      r.StaffName,
		ContactDetails: r.ContactDetails,
		Image:          r.Image,
		StaffImage:     r.StaffImage,
	}
}

// Record converts a parquet row back into a record.
func (r ParquetRow) Record() grievance.Record {
	return grievance.Record{
		ComplaintID:   r.ComplaintID,
		Category:      r.Category,
		SubCategory:   r.SubCategory,
		GrievanceDate: dateField(r.GrievanceDate),
		WardName:      r.WardName,
		Status:        r.Status,
		StaffRemarks:  r.StaffRemarks,
		StaffName:     r.StaffName,
	}
}

func ToCSVRow(r grievance.Record) CSVRow {
	date := ""
	if r.GrievanceDate != nil {
		date = r.GrievanceDate.In(timezone.Location).Format(CSVDateLayout)
	}
	return CSVRow{
		ComplaintID:   r.ComplaintID,
		Category:      grievance.Value(r.Category),
		SubCategory:   grievance.Value(r.SubCategory),
		GrievanceDate: date,
		WardName:      grievance.Value(r.WardName),
		Status:        grievance.Value(r.Status),
		StaffRemarks:  grievance.Value(r.StaffRemarks),
		StaffName:     grievance.Value(r.StaffName),
	}
}
