// Package grievance holds the record type every stage of the pipeline agrees on.
package grievance

import (
	"sort"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

// Columns of the published dataset, in output order.
var Columns = []string{
	"Complaint ID",
	"Category",
	"Sub Category",
	"Grievance Date",
	"Ward Name",
	"Grievance Status",
	"Staff Remarks",
	"Staff Name",
}

// Record is one grievance. Nil pointers are missing values.
type Record struct {
	ComplaintID   string
	Category      *string
	SubCategory   *string
	GrievanceDate *time.Time
	WardName      *string
	Status        *string
	StaffRemarks  *string
	StaffName     *string

	// Fields below are parsed from the portal but contain free text
	// about the complainant, they are only written to the full dataset.
	Description    *string
	Address        *string
	ContactDetails *string
	Image          *string
	StaffImage     *string
}

// MissingMarker is the text the portal renders for an empty field.
const MissingMarker = "--"

// Optional collapses the portal's empty renderings into a missing value.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == MissingMarker {
		return nil
	}
	return &s
}

// Value dereferences an optional string, missing values become "".
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusClosed     = "Closed"
	StatusRejected   = "Rejected"
	StatusReopened   = "Reopened"
)

// Statuses are the canonical grievance statuses.
var Statuses = []string{
	StatusPending,
	StatusInProgress,
	StatusClosed,
	StatusRejected,
	StatusReopened,
}

// statusSimilarity is the minimum Jaro-Winkler similarity for a status to be
// treated as a misspelling of a canonical one.
const statusSimilarity = 0.9

// NormalizeStatus maps raw status text onto one of Statuses. If nothing is
// close enough the cleaned input is returned with known = false.
func NormalizeStatus(raw string) (status string, known bool) {
	cleaned := strings.Join(strings.Fields(raw), " ")
	lowered := strings.ToLower(cleaned)

	var best string
	var bestSimilarity float64
	for _, s := range Statuses {
		target := strings.ToLower(s)
		if lowered == target {
			return s, true
		}
		similarity := matchr.JaroWinkler(lowered, target, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = s
		}
	}
	if bestSimilarity >= statusSimilarity {
		return best, true
	}
	return cleaned, false
}

// Newer reports whether a record fetched at `a` (with raw key `aKey`) should
// replace one fetched at `b` (with raw key `bKey`).
func Newer(a time.Time, aKey string, b time.Time, bKey string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aKey > bKey
}

// Sort orders records newest grievance first, records without a date go
// last, ties are ordered by complaint id.
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		switch {
		case a.GrievanceDate != nil && b.GrievanceDate != nil:
			if !a.GrievanceDate.Equal(*b.GrievanceDate) {
				return a.GrievanceDate.After(*b.GrievanceDate)
			}
		case a.GrievanceDate != nil:
			return true
		case b.GrievanceDate != nil:
			return false
		}
		return lessID(a.ComplaintID, b.ComplaintID)
	})
}

// lessID compares digit strings numerically.
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
