package app

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"patlogger/internal/domain"
	"patlogger/internal/export"
	"patlogger/internal/image"
	"patlogger/internal/storage"
	"patlogger/internal/util"
)

// presignTTL bounds how long exported image links stay valid.
const presignTTL = 24 * time.Hour

// ImageUpload carries one uploaded equipment photo.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// InspectionInput carries the editable fields of an inspection record.
type InspectionInput struct {
	InspectionDate   time.Time
	ReinspectionDate time.Time

	Inspector   string
	Serial      string
	Description string
	Location    string

	EquipmentClass  domain.EquipmentClass
	VisualPass      bool
	FuseRating      float64
	EarthOhms       float64
	InsulationMohms float64
	Leakage         float64
	Passed          bool
	Comments        string

	Manufacturer       string
	EquipmentPower     string
	AppliancePlugCheck bool
	LoadTest           bool
	RCDTripTime        *float64

	// Image, when set, attaches a new photo and replaces any existing
	// one.
	Image *ImageUpload
}

func (in InspectionInput) apply(insp domain.Inspection) domain.Inspection {
	insp.InspectionDate = in.InspectionDate
	insp.ReinspectionDate = in.ReinspectionDate
	insp.Inspector = in.Inspector
	insp.Serial = in.Serial
	insp.Description = in.Description
	insp.Location = in.Location
	insp.EquipmentClass = in.EquipmentClass
	insp.VisualPass = in.VisualPass
	insp.FuseRating = in.FuseRating
	insp.EarthOhms = in.EarthOhms
	insp.InsulationMohms = in.InsulationMohms
	insp.Leakage = in.Leakage
	insp.Passed = in.Passed
	insp.Comments = in.Comments
	insp.Manufacturer = in.Manufacturer
	insp.EquipmentPower = in.EquipmentPower
	insp.AppliancePlugCheck = in.AppliancePlugCheck
	insp.LoadTest = in.LoadTest
	insp.RCDTripTime = in.RCDTripTime
	return insp
}

// CreateInspection validates and stores a new record for owner. The quota
// check runs before any write, so a rejected request leaves no partial
// state behind.
func (a *App) CreateInspection(ctx context.Context, owner domain.User, input InspectionInput) (domain.Inspection, error) {
	count, err := a.store.CountInspectionsByOwner(owner.ID)
	if err != nil {
		return domain.Inspection{}, fmt.Errorf("count inspections: %w", err)
	}
	if count >= int64(owner.InspectionLimit) {
		return domain.Inspection{}, ErrInspectionLimitReached
	}

	now := a.now().UTC()
	insp := input.apply(domain.Inspection{
		ID:        util.NewRecordID(),
		OwnerID:   owner.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err := insp.Validate(); err != nil {
		return domain.Inspection{}, err
	}

	if input.Image != nil {
		blob, err := a.attachImage(ctx, *input.Image)
		if err != nil {
			return domain.Inspection{}, err
		}
		insp.ImageBlobID = blob.ID
	}

	if err := a.store.SaveInspection(insp); err != nil {
		if insp.HasImage() {
			_ = a.purgeBlob(ctx, insp.ImageBlobID)
		}
		return domain.Inspection{}, fmt.Errorf("save inspection: %w", err)
	}
	return insp, nil
}

// UpdateInspection validates and stores edits to an owned record. A new
// image replaces the old one; the old blob is purged only after the save
// succeeds.
func (a *App) UpdateInspection(ctx context.Context, user domain.User, id string, input InspectionInput) (domain.Inspection, error) {
	current, err := a.GetInspectionOwned(user, id)
	if err != nil {
		return domain.Inspection{}, err
	}

	insp := input.apply(current)
	insp.UpdatedAt = a.now().UTC()
	if err := insp.Validate(); err != nil {
		return domain.Inspection{}, err
	}

	oldBlobID := ""
	if input.Image != nil {
		blob, err := a.attachImage(ctx, *input.Image)
		if err != nil {
			return domain.Inspection{}, err
		}
		oldBlobID = current.ImageBlobID
		insp.ImageBlobID = blob.ID
	}

	if err := a.store.SaveInspection(insp); err != nil {
		if input.Image != nil {
			_ = a.purgeBlob(ctx, insp.ImageBlobID)
		}
		return domain.Inspection{}, fmt.Errorf("save inspection: %w", err)
	}
	if oldBlobID != "" {
		_ = a.purgeBlob(ctx, oldBlobID)
	}
	return insp, nil
}

// GetInspectionOwned fetches a record the user may manage. Missing records
// and records owned by someone else both yield ErrAccessDenied.
func (a *App) GetInspectionOwned(user domain.User, id string) (domain.Inspection, error) {
	insp, ok, err := a.store.GetInspection(id)
	if err != nil {
		return domain.Inspection{}, fmt.Errorf("fetch inspection: %w", err)
	}
	if !ok || (!user.Admin && insp.OwnerID != user.ID) {
		return domain.Inspection{}, ErrAccessDenied
	}
	return insp, nil
}

// DeleteInspection removes an owned record and its stored image.
func (a *App) DeleteInspection(ctx context.Context, user domain.User, id string) error {
	insp, err := a.GetInspectionOwned(user, id)
	if err != nil {
		return err
	}
	if insp.HasImage() {
		if err := a.purgeBlob(ctx, insp.ImageBlobID); err != nil {
			return err
		}
	}
	if err := a.store.DeleteInspection(insp.ID); err != nil {
		return fmt.Errorf("delete inspection: %w", err)
	}
	return nil
}

// ListInspections returns the user's records, or every record for an
// admin, newest first.
func (a *App) ListInspections(user domain.User) ([]domain.Inspection, error) {
	return a.store.ListInspections(a.scopeOwner(user))
}

// SearchInspections filters the visible records by serial substring.
func (a *App) SearchInspections(user domain.User, query string) ([]domain.Inspection, error) {
	if query == "" {
		return a.ListInspections(user)
	}
	return a.store.SearchInspections(a.scopeOwner(user), query)
}

// OverdueInspections returns visible records past their re-inspection
// date.
func (a *App) OverdueInspections(user domain.User) ([]domain.Inspection, error) {
	return a.store.ListOverdueInspections(a.scopeOwner(user), a.now())
}

func (a *App) scopeOwner(user domain.User) string {
	if user.Admin {
		return ""
	}
	return user.ID
}

// ExportCSV writes the user's visible records as CSV.
func (a *App) ExportCSV(ctx context.Context, w io.Writer, user domain.User) error {
	inspections, err := a.ListInspections(user)
	if err != nil {
		return err
	}
	return export.Write(w, inspections, func(insp domain.Inspection) string {
		if !insp.HasImage() {
			return ""
		}
		return a.imageURL(ctx, insp.ImageBlobID)
	})
}

// CSVFilename names the export after the current date.
func (a *App) CSVFilename() string {
	return export.Filename(a.now())
}

// imageURL resolves a stable or pre-signed URL for a blob. Backends
// without pre-signing get an application-served link.
func (a *App) imageURL(ctx context.Context, blobID string) string {
	blob, ok, err := a.store.GetBlob(blobID)
	if err != nil || !ok {
		return ""
	}
	url, err := a.blobs.PresignGet(ctx, blob.Key, presignTTL)
	if err != nil {
		return a.baseURL + "/images/" + blob.ID
	}
	return url
}

// BlobLocation resolves how to serve a blob: a redirect URL when the
// backend can pre-sign, otherwise the raw bytes to stream.
func (a *App) BlobLocation(ctx context.Context, blobID string) (string, []byte, string, error) {
	blob, ok, err := a.store.GetBlob(blobID)
	if err != nil {
		return "", nil, "", fmt.Errorf("fetch blob: %w", err)
	}
	if !ok {
		return "", nil, "", ErrNotFound
	}
	url, err := a.blobs.PresignGet(ctx, blob.Key, presignTTL)
	if err == nil {
		return url, nil, blob.ContentType, nil
	}
	if !errors.Is(err, storage.ErrPresignUnsupported) {
		return "", nil, "", fmt.Errorf("presign blob: %w", err)
	}
	data, err := a.blobs.Get(ctx, blob.Key)
	if err != nil {
		return "", nil, "", fmt.Errorf("read blob: %w", err)
	}
	return "", data, blob.ContentType, nil
}

// attachImage validates, normalizes, and stores an uploaded photo as a
// new blob.
func (a *App) attachImage(ctx context.Context, upload ImageUpload) (domain.Blob, error) {
	if err := domain.ValidateImageUpload(upload.ContentType, int64(len(upload.Data))); err != nil {
		return domain.Blob{}, err
	}
	normalized, err := image.NormalizeVariant(upload.Data, image.Large)
	if err != nil {
		return domain.Blob{}, err
	}

	sum := md5.Sum(normalized)
	blob := domain.Blob{
		ID:          uuid.NewString(),
		Filename:    image.JPEGFilename(upload.Filename),
		ContentType: "image/jpeg",
		ByteSize:    int64(len(normalized)),
		Checksum:    base64.StdEncoding.EncodeToString(sum[:]),
		Metadata:    map[string]string{"variant": image.Large.Name},
		CreatedAt:   a.now().UTC(),
	}
	blob.Key = "inspections/" + blob.ID + "/" + blob.Filename

	if err := a.blobs.Put(ctx, blob.Key, bytes.NewReader(normalized), blob.ByteSize, blob.ContentType); err != nil {
		return domain.Blob{}, fmt.Errorf("store image: %w", err)
	}
	if err := a.store.SaveBlob(blob); err != nil {
		_ = a.blobs.Delete(ctx, blob.Key)
		return domain.Blob{}, fmt.Errorf("save blob record: %w", err)
	}
	return blob, nil
}

// purgeBlob removes a blob record and its stored object. Missing pieces
// are skipped so the purge stays idempotent.
func (a *App) purgeBlob(ctx context.Context, blobID string) error {
	blob, ok, err := a.store.GetBlob(blobID)
	if err != nil {
		return fmt.Errorf("fetch blob: %w", err)
	}
	if ok {
		if err := a.blobs.Delete(ctx, blob.Key); err != nil {
			return fmt.Errorf("delete image: %w", err)
		}
	}
	if err := a.store.DeleteBlob(blobID); err != nil {
		return fmt.Errorf("delete blob record: %w", err)
	}
	return nil
}
