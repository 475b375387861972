package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"patlogger/internal/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID              string    `gorm:"primaryKey"`
	Email           string    `gorm:"uniqueIndex;not null"`
	PasswordHash    string    `gorm:"not null"`
	Admin           bool      `gorm:"not null"`
	InspectionLimit int       `gorm:"not null;default:10"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type InspectionModel struct {
	ID      string    `gorm:"primaryKey"`
	OwnerID string    `gorm:"not null;index"`
	Owner   UserModel `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`

	InspectionDate   time.Time `gorm:"not null"`
	ReinspectionDate time.Time `gorm:"not null"`

	Inspector   string `gorm:"not null"`
	Serial      string `gorm:"not null;index"`
	Description string `gorm:"not null"`
	Location    string `gorm:"not null"`

	EquipmentClass  int     `gorm:"not null"`
	VisualPass      bool    `gorm:"not null"`
	FuseRating      float64 `gorm:"not null"`
	EarthOhms       float64 `gorm:"not null"`
	InsulationMohms float64 `gorm:"not null"`
	Leakage         float64 `gorm:"not null"`
	Passed          bool    `gorm:"not null"`
	Comments        string  `gorm:"type:text"`

	Manufacturer       string
	EquipmentPower     string
	AppliancePlugCheck bool
	LoadTest           bool
	RCDTripTime        *float64

	ImageBlobID *string `gorm:"index"`

	PDFLastAccessedAt *time.Time
	CreatedAt         time.Time `gorm:"not null;index"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (InspectionModel) TableName() string { return "inspections" }

type BlobModel struct {
	ID          string `gorm:"primaryKey"`
	Key         string `gorm:"uniqueIndex;not null"`
	Filename    string `gorm:"not null"`
	ContentType string `gorm:"not null"`
	ByteSize    int64  `gorm:"not null"`
	Checksum    string
	Metadata    datatypes.JSON
	CreatedAt   time.Time `gorm:"not null;index"`
}

func (BlobModel) TableName() string { return "blobs" }

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:              u.ID,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		Admin:           u.Admin,
		InspectionLimit: u.InspectionLimit,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:              m.ID,
		Email:           m.Email,
		PasswordHash:    m.PasswordHash,
		Admin:           m.Admin,
		InspectionLimit: m.InspectionLimit,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func inspectionToModel(i domain.Inspection) InspectionModel {
	var blobID *string
	if i.ImageBlobID != "" {
		id := i.ImageBlobID
		blobID = &id
	}
	return InspectionModel{
		ID:                 i.ID,
		OwnerID:            i.OwnerID,
		InspectionDate:     i.InspectionDate,
		ReinspectionDate:   i.ReinspectionDate,
		Inspector:          i.Inspector,
		Serial:             i.Serial,
		Description:        i.Description,
		Location:           i.Location,
		EquipmentClass:     int(i.EquipmentClass),
		VisualPass:         i.VisualPass,
		FuseRating:         i.FuseRating,
		EarthOhms:          i.EarthOhms,
		InsulationMohms:    i.InsulationMohms,
		Leakage:            i.Leakage,
		Passed:             i.Passed,
		Comments:           i.Comments,
		Manufacturer:       i.Manufacturer,
		EquipmentPower:     i.EquipmentPower,
		AppliancePlugCheck: i.AppliancePlugCheck,
		LoadTest:           i.LoadTest,
		RCDTripTime:        i.RCDTripTime,
		ImageBlobID:        blobID,
		PDFLastAccessedAt:  i.PDFLastAccessedAt,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

func inspectionFromModel(m InspectionModel) domain.Inspection {
	blobID := ""
	if m.ImageBlobID != nil {
		blobID = *m.ImageBlobID
	}
	return domain.Inspection{
		ID:                 m.ID,
		OwnerID:            m.OwnerID,
		InspectionDate:     m.InspectionDate,
		ReinspectionDate:   m.ReinspectionDate,
		Inspector:          m.Inspector,
		Serial:             m.Serial,
		Description:        m.Description,
		Location:           m.Location,
		EquipmentClass:     domain.EquipmentClass(m.EquipmentClass),
		VisualPass:         m.VisualPass,
		FuseRating:         m.FuseRating,
		EarthOhms:          m.EarthOhms,
		InsulationMohms:    m.InsulationMohms,
		Leakage:            m.Leakage,
		Passed:             m.Passed,
		Comments:           m.Comments,
		Manufacturer:       m.Manufacturer,
		EquipmentPower:     m.EquipmentPower,
		AppliancePlugCheck: m.AppliancePlugCheck,
		LoadTest:           m.LoadTest,
		RCDTripTime:        m.RCDTripTime,
		ImageBlobID:        blobID,
		PDFLastAccessedAt:  m.PDFLastAccessedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func blobToModel(b domain.Blob) BlobModel {
	var meta datatypes.JSON
	if len(b.Metadata) > 0 {
		if data, err := json.Marshal(b.Metadata); err == nil {
			meta = datatypes.JSON(data)
		}
	}
	return BlobModel{
		ID:          b.ID,
		Key:         b.Key,
		Filename:    b.Filename,
		ContentType: b.ContentType,
		ByteSize:    b.ByteSize,
		Checksum:    b.Checksum,
		Metadata:    meta,
		CreatedAt:   b.CreatedAt,
	}
}

func blobFromModel(m BlobModel) domain.Blob {
	var meta map[string]string
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &meta)
	}
	return domain.Blob{
		ID:          m.ID,
		Key:         m.Key,
		Filename:    m.Filename,
		ContentType: m.ContentType,
		ByteSize:    m.ByteSize,
		Checksum:    m.Checksum,
		Metadata:    meta,
		CreatedAt:   m.CreatedAt,
	}
}
