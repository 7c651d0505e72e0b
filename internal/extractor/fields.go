package extractor

import (
	"errors"
	"fmt"
	"time"

	"bbmp-grievances/internal/grievance"
	"bbmp-grievances/lib/textutil"
	"bbmp-grievances/lib/timezone"
)

var (
	errMissingID   = errors.New("complaint id is missing")
	errMalformedID = errors.New("complaint id is not numeric")
)

// dateLayouts are the renderings of a grievance date seen on the portal,
// always in IST.
var dateLayouts = []string{
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006 15:04:05",
}

// ParseDate parses a grievance date as rendered by the portal.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, value, timezone.Location)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// complaintID picks the id of a row, `fallback` is the id implied by the
// file name (empty when there is none).
func complaintID(r row, fallback string) (string, error) {
	id, ok := r[fieldComplaintID]
	if !ok || grievance.Optional(id) == nil {
		id = fallback
	}
	if id == "" {
		return "", errMissingID
	}
	if !textutil.IsDigits(id) {
		return "", fmt.Errorf("%w: %q", errMalformedID, id)
	}
	return id, nil
}

func optionalField(r row, f field) *string {
	value, ok := r[f]
	if !ok {
		return nil
	}
	return grievance.Optional(value)
}

type issues struct {
	badDate   string
	badStatus string
}

// toRecord converts a row, it only fails when the row has no usable id.
func toRecord(r row, fallbackID string) (grievance.Record, issues, error) {
	var problems issues

	id, err := complaintID(r, fallbackID)
	if err != nil {
		return grievance.Record{}, problems, err
	}

	record := grievance.Record{
		ComplaintID:    id,
		Category:       optionalField(r, fieldCategory),
		SubCategory:    optionalField(r, fieldSubCategory),
		WardName:       optionalField(r, fieldWardName),
		StaffRemarks:   optionalField(r, fieldStaffRemarks),
		StaffName:      optionalField(r, fieldStaffName),
		Description:    optionalField(r, fieldDescription),
		Address:        optionalField(r, fieldAddress),
		ContactDetails: optionalField(r, fieldContactDetails),
		Image:          optionalField(r, fieldImage),
		StaffImage:     optionalField(r, fieldStaffImage),
	}

	if raw := optionalField(r, fieldGrievanceDate); raw != nil {
		date, err := ParseDate(*raw)
		if err != nil {
			problems.badDate = *raw
		} else {
			record.GrievanceDate = &date
		}
	}

	if raw := optionalField(r, fieldStatus); raw != nil {
		status, known := grievance.NormalizeStatus(*raw)
		if !known {
			problems.badStatus = status
		}
		record.Status = &status
	}

	return record, problems, nil
}
