// Package export serializes inspection sets into CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"patlogger/internal/domain"
)

// Columns is the fixed header row. Order is part of the export contract.
var Columns = []string{
	"id",
	"serial",
	"inspection_date",
	"reinspection_date",
	"inspector",
	"description",
	"location",
	"equipment_class",
	"visual_pass",
	"fuse_rating",
	"earth_ohms",
	"insulation_mohms",
	"leakage",
	"passed",
	"comments",
	"appliance_plug_check",
	"equipment_power",
	"load_test",
	"rcd_trip_time",
	"manufacturer",
	"image_url",
}

const dateLayout = "2006-01-02"

// ImageURLFunc resolves the absolute URL of an inspection's stored image.
// It must return "" when no image is attached.
type ImageURLFunc func(domain.Inspection) string

// Write emits the header plus one row per inspection, in the order given.
// Quoting follows RFC 4180 via encoding/csv; no row is dropped or truncated.
func Write(w io.Writer, inspections []domain.Inspection, imageURL ImageURLFunc) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, insp := range inspections {
		url := ""
		if insp.HasImage() && imageURL != nil {
			url = imageURL(insp)
		}
		record := []string{
			insp.ID,
			insp.Serial,
			insp.InspectionDate.Format(dateLayout),
			insp.ReinspectionDate.Format(dateLayout),
			insp.Inspector,
			insp.Description,
			insp.Location,
			strconv.Itoa(int(insp.EquipmentClass)),
			strconv.FormatBool(insp.VisualPass),
			formatFloat(insp.FuseRating),
			formatFloat(insp.EarthOhms),
			formatFloat(insp.InsulationMohms),
			formatFloat(insp.Leakage),
			strconv.FormatBool(insp.Passed),
			insp.Comments,
			strconv.FormatBool(insp.AppliancePlugCheck),
			insp.EquipmentPower,
			strconv.FormatBool(insp.LoadTest),
			formatOptFloat(insp.RCDTripTime),
			insp.Manufacturer,
			url,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", insp.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename names the download after the export date.
func Filename(t time.Time) string {
	return "inspections-" + t.Format(dateLayout) + ".csv"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
