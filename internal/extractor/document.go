package extractor

import (
	"io"
	"regexp"

	"bbmp-grievances/lib/htmlutil"
	"bbmp-grievances/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

type field int

const (
	fieldComplaintID field = iota
	fieldCategory
	fieldSubCategory
	fieldGrievanceDate
	fieldWardName
	fieldAddress
	fieldDescription
	fieldStatus
	fieldStaffRemarks
	fieldStaffName
	fieldContactDetails
	fieldImage
	fieldStaffImage
)

// labels maps normalized label text onto the field it introduces.
var labels = map[string]field{
	"complaintid":           fieldComplaintID,
	"complaintno":           fieldComplaintID,
	"category":              fieldCategory,
	"subcategory":           fieldSubCategory,
	"grievancedate":         fieldGrievanceDate,
	"wardname":              fieldWardName,
	"address":               fieldAddress,
	"description":           fieldDescription,
	"grievancestatus":       fieldStatus,
	"staffremarks":          fieldStaffRemarks,
	"staffname":             fieldStaffName,
	"contactdetails":        fieldContactDetails,
	"image":                 fieldImage,
	"staffrecentaddedimage": fieldStaffImage,
}

var viewDocument = regexp.MustCompile(`viewDocument\('([^']+)'\)`)

// row holds the cleaned text of every field found in one grievance panel.
type row map[field]string

// parseRows returns a row for every top level panel of the document.
func parseRows(r io.Reader) ([]row, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var rows []row
	doc.Find("div.panel").
		FilterFunction(func(_ int, panel *goquery.Selection) bool {
			return panel.ParentsFiltered("div.panel").Length() == 0
		}).
		Each(func(_ int, panel *goquery.Selection) {
			r := parsePanel(panel)
			if len(r) > 0 {
				rows = append(rows, r)
			}
		})
	return rows, nil
}

func parsePanel(panel *goquery.Selection) row {
	out := row{}
	panel.Find("label").Each(func(_ int, label *goquery.Selection) {
		f, ok := labels[textutil.NormalizeLabel(htmlutil.SelectionText(label))]
		if !ok {
			return
		}
		if _, seen := out[f]; seen {
			return
		}
		value := label.NextAllFiltered("div").First()
		if value.Length() == 0 {
			return
		}
		if f == fieldImage || f == fieldStaffImage {
			if link := documentLink(value); link != "" {
				out[f] = link
				return
			}
		}
		out[f] = htmlutil.SelectionText(value)
	})
	return out
}

// documentLink reads the document a "view" button opens.
func documentLink(value *goquery.Selection) string {
	var link string
	value.Find("[onclick]").EachWithBreak(func(_ int, button *goquery.Selection) bool {
		match := viewDocument.FindStringSubmatch(button.AttrOr("onclick", ""))
		if len(match) < 2 {
			return true
		}
		link = match[1]
		return false
	})
	return link
}
