package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"patlogger/internal/app"
	"patlogger/internal/domain"
)

const (
	formDateLayout = "2006-01-02"

	// multipartMemory bounds the in-memory portion of form parsing.
	multipartMemory = 4 << 20
)

func (s *Server) handleInspections(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		inspections, err := s.app.ListInspections(user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": inspections,
			"count": len(inspections),
			"flash": takeFlash(w, r),
		})
	case http.MethodPost:
		input, err := s.parseInspectionInput(r)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		created, err := s.app.CreateInspection(r.Context(), user, input)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleInspectionsCSV(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.app.CSVFilename()))
	if err := s.app.ExportCSV(r.Context(), w, user); err != nil {
		// Headers are already out; the truncated body signals the
		// failure.
		return
	}
}

// handleInspectionPath dispatches /inspections/{...} routes. The
// certificate subresource is public; everything else requires a session.
func (s *Server) handleInspectionPath(w http.ResponseWriter, r *http.Request) {
	head, tail := pathSuffix(r.URL.Path, "/inspections/")
	if head == "" || strings.Contains(tail, "/") {
		http.NotFound(w, r)
		return
	}

	if tail == "certificate" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.serveCertificate(w, r, head)
		return
	}

	s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		switch head {
		case "new":
			s.handleInspectionNew(w, r)
		case "search":
			s.handleInspectionSearch(w, r, user)
		case "overdue":
			s.handleInspectionOverdue(w, r, user)
		default:
			s.handleInspectionByID(w, r, user, head, tail)
		}
	}).ServeHTTP(w, r)
}

func (s *Server) handleInspectionNew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	writeJSON(w, http.StatusOK, map[string]any{
		"inspectionDate":   today.Format(formDateLayout),
		"reinspectionDate": today.AddDate(1, 0, 0).Format(formDateLayout),
		"flash":            takeFlash(w, r),
	})
}

func (s *Server) handleInspectionSearch(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	inspections, err := s.app.SearchInspections(user, r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": inspections,
		"count": len(inspections),
	})
}

func (s *Server) handleInspectionOverdue(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	inspections, err := s.app.OverdueInspections(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": inspections,
		"count": len(inspections),
	})
}

func (s *Server) handleInspectionByID(w http.ResponseWriter, r *http.Request, user domain.User, id, action string) {
	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			insp, err := s.app.GetInspectionOwned(user, id)
			if err != nil {
				s.handleAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, insp)
		case http.MethodPatch, http.MethodPut:
			input, err := s.parseInspectionInput(r)
			if err != nil {
				s.handleAppError(w, r, err)
				return
			}
			updated, err := s.app.UpdateInspection(r.Context(), user, id, input)
			if err != nil {
				s.handleAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		case http.MethodDelete:
			if err := s.app.DeleteInspection(r.Context(), user, id); err != nil {
				s.handleAppError(w, r, err)
				return
			}
			redirectWithFlash(w, r, "/inspections", "Inspection deleted")
		default:
			methodNotAllowed(w)
		}
	case "edit":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		insp, err := s.app.GetInspectionOwned(user, id)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, insp)
	case "qr_code":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		png, err := s.app.QRCode(user, id)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	default:
		http.NotFound(w, r)
	}
}

// handleCertificateShortLink serves /c/{id} and /C/{id} without a
// session.
func (s *Server) handleCertificateShortLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, tail := pathSuffix(r.URL.Path, "/c/")
	if strings.HasPrefix(r.URL.Path, "/C/") {
		id, tail = pathSuffix(r.URL.Path, "/C/")
	}
	if id == "" || tail != "" {
		http.NotFound(w, r)
		return
	}
	s.serveCertificate(w, r, id)
}

func (s *Server) serveCertificate(w http.ResponseWriter, r *http.Request, id string) {
	pdf, filename, err := s.app.Certificate(r.Context(), id)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	_, _ = w.Write(pdf)
}

// parseInspectionInput reads the multipart inspection form, including the
// optional image file. Reading the upload stops at one byte past the
// limit so oversize files fail validation without being buffered whole.
func (s *Server) parseInspectionInput(r *http.Request) (app.InspectionInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		verr := &domain.ValidationError{}
		verr.Add("form", "invalid multipart form")
		return app.InspectionInput{}, verr
	}

	verr := &domain.ValidationError{}
	input := app.InspectionInput{
		Inspector:          r.FormValue("inspector"),
		Serial:             r.FormValue("serial"),
		Description:        r.FormValue("description"),
		Location:           r.FormValue("location"),
		Comments:           r.FormValue("comments"),
		Manufacturer:       r.FormValue("manufacturer"),
		EquipmentPower:     r.FormValue("equipment_power"),
		VisualPass:         formBool(r.FormValue("visual_pass")),
		Passed:             formBool(r.FormValue("passed")),
		AppliancePlugCheck: formBool(r.FormValue("appliance_plug_check")),
		LoadTest:           formBool(r.FormValue("load_test")),
	}

	input.InspectionDate = formDate(verr, r, "inspection_date")
	input.ReinspectionDate = formDate(verr, r, "reinspection_date")
	input.EquipmentClass = domain.EquipmentClass(int(formFloat(verr, r, "equipment_class")))
	input.FuseRating = formFloat(verr, r, "fuse_rating")
	input.EarthOhms = formFloat(verr, r, "earth_ohms")
	input.InsulationMohms = formFloat(verr, r, "insulation_mohms")
	input.Leakage = formFloat(verr, r, "leakage")
	if raw := strings.TrimSpace(r.FormValue("rcd_trip_time")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			verr.Add("rcd_trip_time", "is not a number")
		} else {
			input.RCDTripTime = &v
		}
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(io.LimitReader(file, domain.MaxImageBytes+1))
		if readErr != nil {
			verr.Add("image", "could not be read")
		} else {
			input.Image = &app.ImageUpload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
		}
	} else if err != http.ErrMissingFile {
		verr.Add("image", "could not be read")
	}

	if err := verr.OrNil(); err != nil {
		return app.InspectionInput{}, err
	}
	return input, nil
}

func formBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

func formDate(verr *domain.ValidationError, r *http.Request, field string) time.Time {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(formDateLayout, raw)
	if err != nil {
		verr.Add(field, "is not a valid date")
		return time.Time{}
	}
	return t
}

func formFloat(verr *domain.ValidationError, r *http.Request, field string) float64 {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		verr.Add(field, "is not a number")
		return 0
	}
	return v
}
