package store

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"patlogger/internal/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &BlobModel{}, &InspectionModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "inspection_limit", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int64, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteUser removes the user and its inspections in one transaction.
func (s *GormStore) DeleteUser(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&InspectionModel{}, "owner_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&UserModel{}, "id = ?", id).Error
	})
}

// SaveInspection stores or updates an inspection.
func (s *GormStore) SaveInspection(i domain.Inspection) error {
	model := inspectionToModel(i)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"inspection_date", "reinspection_date", "inspector", "serial",
			"description", "location", "equipment_class", "visual_pass",
			"fuse_rating", "earth_ohms", "insulation_mohms", "leakage",
			"passed", "comments", "manufacturer", "equipment_power",
			"appliance_plug_check", "load_test", "rcd_trip_time",
			"image_blob_id", "updated_at",
		}),
	}).Create(&model).Error
}

// GetInspection retrieves an inspection; the id match is case-insensitive
// because short certificate links may arrive upper-cased.
func (s *GormStore) GetInspection(id string) (domain.Inspection, bool, error) {
	var model InspectionModel
	if err := s.db.First(&model, "id = ?", strings.ToLower(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Inspection{}, false, nil
		}
		return domain.Inspection{}, false, err
	}
	return inspectionFromModel(model), true, nil
}

// ListInspections returns inspections newest first, optionally owner-scoped.
func (s *GormStore) ListInspections(ownerID string) ([]domain.Inspection, error) {
	return s.listInspections(ownerID, nil)
}

// SearchInspections filters by serial, case-insensitive contains.
// The query is passed as a bind parameter; LIKE wildcards are escaped.
func (s *GormStore) SearchInspections(ownerID, query string) ([]domain.Inspection, error) {
	pattern := "%" + escapeLike(query) + "%"
	return s.listInspections(ownerID, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("serial ILIKE ?", pattern)
	})
}

// ListOverdueInspections returns inspections past their re-inspection date.
func (s *GormStore) ListOverdueInspections(ownerID string, now time.Time) ([]domain.Inspection, error) {
	return s.listInspections(ownerID, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("reinspection_date < ?", now)
	})
}

func (s *GormStore) listInspections(ownerID string, scope func(*gorm.DB) *gorm.DB) ([]domain.Inspection, error) {
	tx := s.db.Order("created_at DESC")
	if ownerID != "" {
		tx = tx.Where("owner_id = ?", ownerID)
	}
	if scope != nil {
		tx = scope(tx)
	}
	var models []InspectionModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Inspection, 0, len(models))
	for _, m := range models {
		res = append(res, inspectionFromModel(m))
	}
	return res, nil
}

// CountInspectionsByOwner returns the owner's inspection count.
func (s *GormStore) CountInspectionsByOwner(ownerID string) (int64, error) {
	var count int64
	if err := s.db.Model(&InspectionModel{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteInspection removes one inspection.
func (s *GormStore) DeleteInspection(id string) error {
	return s.db.Delete(&InspectionModel{}, "id = ?", strings.ToLower(id)).Error
}

// TouchPDFAccess records the certificate download time without bumping
// updated_at.
func (s *GormStore) TouchPDFAccess(id string, at time.Time) error {
	return s.db.Model(&InspectionModel{}).
		Where("id = ?", strings.ToLower(id)).
		UpdateColumn("pdf_last_accessed_at", at).Error
}

// SaveBlob stores blob metadata.
func (s *GormStore) SaveBlob(b domain.Blob) error {
	model := blobToModel(b)
	return s.db.Create(&model).Error
}

// GetBlob retrieves blob metadata.
func (s *GormStore) GetBlob(id string) (domain.Blob, bool, error) {
	var model BlobModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Blob{}, false, nil
		}
		return domain.Blob{}, false, err
	}
	return blobFromModel(model), true, nil
}

// DeleteBlob removes blob metadata. Deleting an absent blob is a no-op.
func (s *GormStore) DeleteBlob(id string) error {
	return s.db.Delete(&BlobModel{}, "id = ?", id).Error
}

// ListBlobs returns all blobs, newest first.
func (s *GormStore) ListBlobs() ([]domain.Blob, error) {
	var models []BlobModel
	if err := s.db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Blob, 0, len(models))
	for _, m := range models {
		res = append(res, blobFromModel(m))
	}
	return res, nil
}

// ListOrphanedBlobs returns unreferenced blobs created before the cutoff.
func (s *GormStore) ListOrphanedBlobs(olderThan time.Time) ([]domain.Blob, error) {
	var models []BlobModel
	err := s.db.
		Where("created_at <= ?", olderThan).
		Where("id NOT IN (?)", s.db.Model(&InspectionModel{}).
			Select("image_blob_id").
			Where("image_blob_id IS NOT NULL")).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Blob, 0, len(models))
	for _, m := range models {
		res = append(res, blobFromModel(m))
	}
	return res, nil
}

func escapeLike(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(query)
}
