package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxImageBytes is the largest accepted image attachment.
const MaxImageBytes = 10 << 20

// MaxFuseRating is the upper bound for fuse ratings in amps.
const MaxFuseRating = 32

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level messages for re-rendering input forms.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field message.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns the error when any field failed, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validate checks the inspection invariants: required text fields non-blank,
// numeric fields within bounds, equipment class one of the allowed values.
func (i Inspection) Validate() error {
	verr := &ValidationError{}
	requireText(verr, "inspector", i.Inspector)
	requireText(verr, "serial", i.Serial)
	requireText(verr, "description", i.Description)
	requireText(verr, "location", i.Location)
	if !i.EquipmentClass.Valid() {
		verr.Add("equipment_class", "must be 1 (Earthed) or 2 (Double Insulated)")
	}
	if i.FuseRating <= 0 {
		verr.Add("fuse_rating", "must be greater than 0")
	} else if i.FuseRating > MaxFuseRating {
		verr.Add("fuse_rating", fmt.Sprintf("must be less than or equal to %d", MaxFuseRating))
	}
	if i.EarthOhms <= 0 {
		verr.Add("earth_ohms", "must be greater than 0")
	}
	if i.InsulationMohms <= 0 {
		verr.Add("insulation_mohms", "must be greater than 0")
	}
	if i.Leakage <= 0 {
		verr.Add("leakage", "must be greater than 0")
	}
	if i.RCDTripTime != nil && *i.RCDTripTime <= 0 {
		verr.Add("rcd_trip_time", "must be greater than 0")
	}
	if i.InspectionDate.IsZero() {
		verr.Add("inspection_date", "can't be blank")
	}
	return verr.OrNil()
}

// ValidateEmail checks address format.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		verr := &ValidationError{}
		verr.Add("email", "is not a valid email address")
		return verr
	}
	return nil
}

// ValidateImageUpload checks the declared size and content type of an upload
// before any bytes are processed.
func ValidateImageUpload(contentType string, byteSize int64) error {
	verr := &ValidationError{}
	if !strings.HasPrefix(contentType, "image/") {
		verr.Add("image", "must be an image file")
	}
	if byteSize > MaxImageBytes {
		verr.Add("image", "cannot be larger than 10MB")
	}
	return verr.OrNil()
}

func requireText(verr *ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		verr.Add(field, "can't be blank")
	}
}
