package store

import (
	"strings"
	"testing"
	"time"

	"patlogger/internal/domain"
)

func newUser(id, email string) domain.User {
	return domain.User{
		ID:              id,
		Email:           email,
		PasswordHash:    "x",
		InspectionLimit: domain.DefaultInspectionLimit,
	}
}

func newInspection(id, ownerID, serial string, createdAt time.Time) domain.Inspection {
	return domain.Inspection{
		ID:              id,
		OwnerID:         ownerID,
		InspectionDate:  createdAt,
		Inspector:       "A. Tester",
		Serial:          serial,
		Description:     "Kettle",
		Location:        "Kitchen",
		EquipmentClass:  domain.ClassEarthed,
		VisualPass:      true,
		FuseRating:      13,
		EarthOhms:       0.1,
		InsulationMohms: 200,
		Leakage:         0.2,
		Passed:          true,
		CreatedAt:       createdAt,
	}
}

func TestMemoryStoreUserLifecycle(t *testing.T) {
	s := NewMemoryStore()

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty store, got %d users", count)
	}

	if err := s.SaveUser(newUser("u1", "owner@example.com")); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	has, err := s.HasUserEmail("owner@example.com")
	if err != nil {
		t.Fatalf("HasUserEmail: %v", err)
	}
	if !has {
		t.Fatal("expected email to exist")
	}

	got, ok, err := s.GetUserByEmail("owner@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if !ok || got.ID != "u1" {
		t.Fatalf("GetUserByEmail returned ok=%v user=%+v", ok, got)
	}

	if err := s.DeleteUser("u1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	_, ok, err = s.GetUserByID("u1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if ok {
		t.Fatal("expected user to be gone")
	}
}

func TestMemoryStoreDeleteUserCascades(t *testing.T) {
	s := NewMemoryStore()
	if err := s.SaveUser(newUser("u1", "a@example.com")); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	if err := s.SaveInspection(newInspection("aaaaaaaaaaaa", "u1", "SN-1", time.Now())); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}
	if err := s.DeleteUser("u1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	list, err := s.ListInspections("")
	if err != nil {
		t.Fatalf("ListInspections: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected cascade delete, got %d inspections", len(list))
	}
}

func TestMemoryStoreGetInspectionCaseInsensitive(t *testing.T) {
	s := NewMemoryStore()
	rec := newInspection("abc123def456", "u1", "SN-1", time.Now())
	if err := s.SaveInspection(rec); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}
	got, ok, err := s.GetInspection(strings.ToUpper(rec.ID))
	if err != nil {
		t.Fatalf("GetInspection: %v", err)
	}
	if !ok || got.ID != rec.ID {
		t.Fatalf("uppercase lookup returned ok=%v rec=%+v", ok, got)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"aaaaaaaaaaa1", "aaaaaaaaaaa2", "aaaaaaaaaaa3"} {
		rec := newInspection(id, "u1", "SN", base.Add(time.Duration(i)*time.Minute))
		if err := s.SaveInspection(rec); err != nil {
			t.Fatalf("SaveInspection: %v", err)
		}
	}
	list, err := s.ListInspections("u1")
	if err != nil {
		t.Fatalf("ListInspections: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 inspections, got %d", len(list))
	}
	if list[0].ID != "aaaaaaaaaaa3" || list[2].ID != "aaaaaaaaaaa1" {
		t.Fatalf("expected newest first, got %s .. %s", list[0].ID, list[2].ID)
	}
}

func TestMemoryStoreSearchBySerialSubstring(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	if err := s.SaveInspection(newInspection("aaaaaaaaaaa1", "u1", "ABC-100", now)); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}
	if err := s.SaveInspection(newInspection("aaaaaaaaaaa2", "u1", "XYZ-200", now.Add(time.Second))); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}
	if err := s.SaveInspection(newInspection("aaaaaaaaaaa3", "u2", "ABC-300", now.Add(2*time.Second))); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}

	got, err := s.SearchInspections("u1", "abc")
	if err != nil {
		t.Fatalf("SearchInspections: %v", err)
	}
	if len(got) != 1 || got[0].Serial != "ABC-100" {
		t.Fatalf("expected only owner's ABC match, got %+v", got)
	}

	all, err := s.SearchInspections("", "abc")
	if err != nil {
		t.Fatalf("SearchInspections all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 matches across owners, got %d", len(all))
	}
}

func TestMemoryStoreOverdue(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()

	due := newInspection("aaaaaaaaaaa1", "u1", "SN-1", now)
	due.ReinspectionDate = now.Add(-24 * time.Hour)
	if err := s.SaveInspection(due); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}

	fresh := newInspection("aaaaaaaaaaa2", "u1", "SN-2", now.Add(time.Second))
	fresh.ReinspectionDate = now.Add(24 * time.Hour)
	if err := s.SaveInspection(fresh); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}

	other := newInspection("aaaaaaaaaaa3", "u2", "SN-3", now.Add(2*time.Second))
	other.ReinspectionDate = now.Add(-24 * time.Hour)
	if err := s.SaveInspection(other); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}

	got, err := s.ListOverdueInspections("u1", now)
	if err != nil {
		t.Fatalf("ListOverdueInspections: %v", err)
	}
	if len(got) != 1 || got[0].ID != "aaaaaaaaaaa1" {
		t.Fatalf("expected only the past-due record, got %+v", got)
	}
}

func TestMemoryStoreOrphanedBlobs(t *testing.T) {
	s := NewMemoryStore()
	old := time.Now().Add(-72 * time.Hour)

	attached := domain.Blob{ID: "blob-attached", Key: "k1", Filename: "a.jpg", ContentType: "image/jpeg", CreatedAt: old}
	orphan := domain.Blob{ID: "blob-orphan", Key: "k2", Filename: "b.jpg", ContentType: "image/jpeg", CreatedAt: old}
	young := domain.Blob{ID: "blob-young", Key: "k3", Filename: "c.jpg", ContentType: "image/jpeg", CreatedAt: time.Now()}
	for _, b := range []domain.Blob{attached, orphan, young} {
		if err := s.SaveBlob(b); err != nil {
			t.Fatalf("SaveBlob: %v", err)
		}
	}

	rec := newInspection("aaaaaaaaaaa1", "u1", "SN-1", time.Now())
	rec.ImageBlobID = "blob-attached"
	if err := s.SaveInspection(rec); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}

	got, err := s.ListOrphanedBlobs(time.Now().Add(-48 * time.Hour))
	if err != nil {
		t.Fatalf("ListOrphanedBlobs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "blob-orphan" {
		t.Fatalf("expected only the old unattached blob, got %+v", got)
	}
}

func TestMemoryStoreTouchPDFAccess(t *testing.T) {
	s := NewMemoryStore()
	rec := newInspection("abc123def456", "u1", "SN-1", time.Now())
	if err := s.SaveInspection(rec); err != nil {
		t.Fatalf("SaveInspection: %v", err)
	}
	at := time.Now().Truncate(time.Second)
	if err := s.TouchPDFAccess("ABC123DEF456", at); err != nil {
		t.Fatalf("TouchPDFAccess: %v", err)
	}
	got, ok, err := s.GetInspection(rec.ID)
	if err != nil {
		t.Fatalf("GetInspection: %v", err)
	}
	if !ok || got.PDFLastAccessedAt == nil || !got.PDFLastAccessedAt.Equal(at) {
		t.Fatalf("expected access time %v, got %+v", at, got.PDFLastAccessedAt)
	}
}
