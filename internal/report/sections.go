// Package report assembles inspection data into the paginated PDF
// certificate. The document is described as a flat list of section values
// which a single rendering pass consumes; callers never touch layout state.
package report

import (
	"strconv"
	"time"

	"patlogger/internal/domain"
)

// AppName appears in the certificate footer.
const AppName = "PAT Inspection Logger"

const dateLayout = "02/01/2006"

// Certificate carries everything the renderer needs, fully loaded up front.
type Certificate struct {
	Inspection domain.Inspection
	// QRCodePNG is the pre-rendered verification QR image.
	QRCodePNG []byte
	// ImageJPEG holds the normalized equipment photo, nil when none is
	// attached. When an attachment exists but could not be read,
	// ImageUnavailable carries the fallback message instead.
	ImageJPEG        []byte
	ImageUnavailable string
	VerificationURL  string
	GeneratedAt      time.Time
}

type row struct {
	Label     string
	Value     string
	Highlight bool // pass/fail summary row gets the colored background
}

type headerSection struct {
	Serial string
	Passed bool
}

type tableSection struct {
	Title  string
	Rows   []row
	Passed bool // controls highlight color of any highlighted row
}

type textSection struct {
	Title string
	Body  string
}

type imageSection struct {
	Title    string
	JPEG     []byte
	Fallback string
}

type qrSection struct {
	Title string
	PNG   []byte
	URL   string
}

type footerSection struct {
	GeneratedAt time.Time
}

func buildSections(cert Certificate) []any {
	insp := cert.Inspection

	sections := []any{
		headerSection{Serial: insp.Serial, Passed: insp.Passed},
		tableSection{
			Title: "Equipment Details",
			Rows: []row{
				{Label: "Description", Value: insp.Description},
				{Label: "Manufacturer", Value: orNotSpecified(insp.Manufacturer)},
				{Label: "Location", Value: insp.Location},
				{Label: "Equipment Class", Value: insp.EquipmentClass.Label()},
				{Label: "Equipment Power", Value: powerValue(insp.EquipmentPower)},
			},
		},
		tableSection{
			Title:  "Test Results",
			Rows:   resultRows(insp),
			Passed: insp.Passed,
		},
	}

	if insp.Comments != "" {
		sections = append(sections, textSection{Title: "Comments", Body: insp.Comments})
	}
	if insp.HasImage() {
		sections = append(sections, imageSection{
			Title:    "Equipment Image",
			JPEG:     cert.ImageJPEG,
			Fallback: cert.ImageUnavailable,
		})
	}
	sections = append(sections,
		qrSection{Title: "Certificate Verification", PNG: cert.QRCodePNG, URL: cert.VerificationURL},
		footerSection{GeneratedAt: cert.GeneratedAt},
	)
	return sections
}

// resultRows always ends with the Overall Result summary row.
func resultRows(insp domain.Inspection) []row {
	rows := []row{
		{Label: "Inspection Date", Value: insp.InspectionDate.Format(dateLayout)},
		{Label: "Re-inspection Due", Value: insp.ReinspectionDate.Format(dateLayout)},
		{Label: "Inspector", Value: insp.Inspector},
		{Label: "Visual Inspection", Value: passFail(insp.VisualPass)},
		{Label: "Appliance Plug Check", Value: passFail(insp.AppliancePlugCheck)},
		{Label: "Fuse Rating", Value: formatFloat(insp.FuseRating) + "A"},
		{Label: "Earth Continuity", Value: formatFloat(insp.EarthOhms) + " Ohms"},
		{Label: "Insulation Resistance", Value: formatFloat(insp.InsulationMohms) + " MOhms"},
		{Label: "Leakage Current", Value: formatFloat(insp.Leakage) + " mA"},
		{Label: "Load/Operation Test", Value: performed(insp.LoadTest)},
	}
	if insp.RCDTripTime != nil {
		rows = append(rows, row{Label: "RCD Trip Time", Value: formatFloat(*insp.RCDTripTime) + " ms"})
	}
	rows = append(rows, row{Label: "Overall Result", Value: passFail(insp.Passed), Highlight: true})
	return rows
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func performed(ok bool) string {
	if ok {
		return "Performed"
	}
	return "Not performed"
}

func orNotSpecified(value string) string {
	if value == "" {
		return "Not specified"
	}
	return value
}

func powerValue(power string) string {
	if power == "" {
		return "Not specified"
	}
	return power + " W"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
