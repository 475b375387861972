package domain

import "time"

// EquipmentClass is the electrical safety class of an appliance.
type EquipmentClass int

const (
	ClassEarthed         EquipmentClass = 1
	ClassDoubleInsulated EquipmentClass = 2
)

// Label returns the human-readable class description used on certificates.
func (c EquipmentClass) Label() string {
	switch c {
	case ClassEarthed:
		return "Class 1 (Earthed)"
	case ClassDoubleInsulated:
		return "Class 2 (Double Insulated)"
	default:
		return "Unknown"
	}
}

// Valid reports whether the class is one of the two allowed values.
func (c EquipmentClass) Valid() bool {
	return c == ClassEarthed || c == ClassDoubleInsulated
}

// DefaultInspectionLimit is the number of inspections a new account may create.
const DefaultInspectionLimit = 10

type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Admin           bool      `json:"admin"`
	InspectionLimit int       `json:"inspectionLimit"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Inspection records one appliance safety test event.
// The ID is a 12-char random lowercase alphanumeric token assigned exactly
// once before first persistence; it is also the public certificate handle.
type Inspection struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`

	InspectionDate   time.Time `json:"inspectionDate"`
	ReinspectionDate time.Time `json:"reinspectionDate"`

	Inspector   string `json:"inspector"`
	Serial      string `json:"serial"`
	Description string `json:"description"`
	Location    string `json:"location"`

	EquipmentClass  EquipmentClass `json:"equipmentClass"`
	VisualPass      bool           `json:"visualPass"`
	FuseRating      float64        `json:"fuseRating"`
	EarthOhms       float64        `json:"earthOhms"`
	InsulationMohms float64        `json:"insulationMohms"`
	Leakage         float64        `json:"leakage"`
	Passed          bool           `json:"passed"`
	Comments        string         `json:"comments,omitempty"`

	Manufacturer       string   `json:"manufacturer,omitempty"`
	EquipmentPower     string   `json:"equipmentPower,omitempty"`
	AppliancePlugCheck bool     `json:"appliancePlugCheck"`
	LoadTest           bool     `json:"loadTest"`
	RCDTripTime        *float64 `json:"rcdTripTime,omitempty"`

	ImageBlobID string `json:"imageBlobId,omitempty"`

	PDFLastAccessedAt *time.Time `json:"pdfLastAccessedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// HasImage reports whether an image blob is attached.
func (i Inspection) HasImage() bool {
	return i.ImageBlobID != ""
}

// Overdue reports whether the re-inspection due date has passed.
func (i Inspection) Overdue(now time.Time) bool {
	return i.ReinspectionDate.Before(now)
}

// Blob describes one stored binary file, independent of the record that
// references it. Blobs no inspection points at are orphaned and eligible for
// cleanup once older than the retention window.
type Blob struct {
	ID          string            `json:"id"`
	Key         string            `json:"-"`
	Filename    string            `json:"filename"`
	ContentType string            `json:"contentType"`
	ByteSize    int64             `json:"byteSize"`
	Checksum    string            `json:"checksum"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}
