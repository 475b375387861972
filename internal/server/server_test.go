package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"patlogger/internal/app"
	"patlogger/internal/ratelimit"
	"patlogger/internal/storage"
	"patlogger/internal/store"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.App == nil {
		a, err := app.New(app.Config{
			BaseURL:  "https://pat.example.com",
			Store:    store.NewMemoryStore(),
			Sessions: store.NewMemorySessionStore(time.Hour),
			Blobs:    storage.NewMemoryBlobStore(),
		})
		if err != nil {
			t.Fatalf("app.New: %v", err)
		}
		cfg.App = a
	}
	srv := httptest.NewServer(New(cfg).Router())
	t.Cleanup(srv.Close)
	return srv
}

// newClient returns an HTTP client with a cookie jar that does not follow
// redirects, so 303 responses can be asserted directly.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func signUp(t *testing.T, client *http.Client, baseURL, email string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"secret1"}`, email)
	resp, err := client.Post(baseURL+"/signup", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("signup request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		out, _ := io.ReadAll(resp.Body)
		t.Fatalf("signup expected 201, got %d: %s", resp.StatusCode, out)
	}
}

func inspectionForm(t *testing.T, extra map[string]string, imagePNG []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"inspection_date":   "2024-05-01",
		"reinspection_date": "2025-05-01",
		"inspector":         "J. Smith",
		"serial":            "KET-001",
		"description":       "Electric kettle",
		"location":          "Staff kitchen",
		"equipment_class":   "1",
		"visual_pass":       "1",
		"fuse_rating":       "13",
		"earth_ohms":        "0.08",
		"insulation_mohms":  "250",
		"leakage":           "0.31",
		"passed":            "1",
	}
	for k, v := range extra {
		fields[k] = v
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if imagePNG != nil {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Disposition": {`form-data; name="image"; filename="photo.png"`},
			"Content-Type":        {"image/png"},
		})
		if err != nil {
			t.Fatalf("create image part: %v", err)
		}
		if _, err := part.Write(imagePNG); err != nil {
			t.Fatalf("write image part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func createInspection(t *testing.T, client *http.Client, baseURL string, extra map[string]string, imagePNG []byte) map[string]any {
	t.Helper()
	body, contentType := inspectionForm(t, extra, imagePNG)
	resp, err := client.Post(baseURL+"/inspections", contentType, body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		out, _ := io.ReadAll(resp.Body)
		t.Fatalf("create expected 201, got %d: %s", resp.StatusCode, out)
	}
	var created map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return created
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Config{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	resp, err := client.Get(srv.URL + "/inspections")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
}

func TestSignupSetsSessionCookie(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "first@example.com")

	resp, err := client.Get(srv.URL + "/inspections")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after signup, got %d", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "who@example.com")

	resp, err := client.Post(srv.URL+"/login", "application/json",
		strings.NewReader(`{"email":"who@example.com","password":"wrong99"}`))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	out, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(out), "Incorrect email address or password") {
		t.Fatalf("expected generic credential error, got %s", out)
	}
}

func TestLoginRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "patlogger:ratelimit:login", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	srv := newTestServer(t, Config{LoginLimiter: limiter})
	client := newClient(t)

	body := `{"email":"a@example.com","password":"secret1"}`
	resp1, err := client.Post(srv.URL+"/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("first login request: %v", err)
	}
	resp1.Body.Close()
	if resp1.StatusCode == http.StatusTooManyRequests {
		t.Fatalf("first request must not be throttled")
	}

	resp2, err := client.Post(srv.URL+"/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("second login request: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", resp2.StatusCode)
	}
}

func TestCreateAndFetchInspection(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "owner@example.com")

	created := createInspection(t, client, srv.URL, nil, smallPNG(t))
	id, _ := created["id"].(string)
	if len(id) != 12 {
		t.Fatalf("expected 12-char id, got %q", id)
	}
	if created["imageBlobId"] == "" {
		t.Fatal("expected attached image blob")
	}

	resp, err := client.Get(srv.URL + "/inspections/" + id)
	if err != nil {
		t.Fatalf("fetch request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["serial"] != "KET-001" {
		t.Fatalf("unexpected serial %v", got["serial"])
	}
}

func TestCreateInspectionValidationStatus(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "owner@example.com")

	body, contentType := inspectionForm(t, map[string]string{"serial": " ", "earth_ohms": "0"}, nil)
	resp, err := client.Post(srv.URL+"/inspections", contentType, body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	out, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(out), "can't be blank") || !strings.Contains(string(out), "earth_ohms") {
		t.Fatalf("expected field messages, got %s", out)
	}
}

func TestNonOwnerRedirectedWithFlash(t *testing.T) {
	srv := newTestServer(t, Config{})
	owner := newClient(t)
	signUp(t, owner, srv.URL, "admin@example.com")

	// The second signup is a regular user owning one record.
	second := newClient(t)
	signUp(t, second, srv.URL, "owner@example.com")
	created := createInspection(t, second, srv.URL, nil, nil)
	id := created["id"].(string)

	third := newClient(t)
	signUp(t, third, srv.URL, "intruder@example.com")
	resp, err := third.Get(srv.URL + "/inspections/" + id)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/inspections" {
		t.Fatalf("expected redirect to /inspections, got %q", loc)
	}

	// The flash message surfaces on the next list request.
	listResp, err := third.Get(srv.URL + "/inspections")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer listResp.Body.Close()
	out, _ := io.ReadAll(listResp.Body)
	if !strings.Contains(string(out), "Access denied") {
		t.Fatalf("expected access denied flash, got %s", out)
	}
}

func TestCertificatePublicShortLink(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "owner@example.com")
	created := createInspection(t, client, srv.URL, nil, nil)
	id := created["id"].(string)

	// No session: a plain client fetches by uppercase short link.
	resp, err := http.Get(srv.URL + "/c/" + strings.ToUpper(id))
	if err != nil {
		t.Fatalf("certificate request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `inline; filename="PAT_Certificate_KET-001.pdf"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	out, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("expected a PDF body")
	}
}

func TestQRCodeOwnerOnly(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "admin@example.com")
	owner := newClient(t)
	signUp(t, owner, srv.URL, "owner@example.com")
	created := createInspection(t, owner, srv.URL, nil, nil)
	id := created["id"].(string)

	resp, err := owner.Get(srv.URL + "/inspections/" + id + "/qr_code")
	if err != nil {
		t.Fatalf("qr request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("expected PNG response, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	other := newClient(t)
	signUp(t, other, srv.URL, "other@example.com")
	denied, err := other.Get(srv.URL + "/inspections/" + id + "/qr_code")
	if err != nil {
		t.Fatalf("qr request: %v", err)
	}
	denied.Body.Close()
	if denied.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 for non-owner, got %d", denied.StatusCode)
	}
}

func TestCSVExportHeaders(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "owner@example.com")
	createInspection(t, client, srv.URL, nil, nil)

	resp, err := client.Get(srv.URL + "/inspections.csv")
	if err != nil {
		t.Fatalf("csv request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "inspections-") {
		t.Fatalf("expected dated filename, got %q", cd)
	}
	out, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(out), "id,serial,inspection_date") {
		t.Fatalf("unexpected csv header: %s", out)
	}
}

func TestSearchAndOverdue(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "owner@example.com")
	createInspection(t, client, srv.URL, map[string]string{"serial": "ABC-100"}, nil)
	createInspection(t, client, srv.URL, map[string]string{
		"serial":            "XYZ-200",
		"reinspection_date": "2020-01-01",
	}, nil)

	resp, err := client.Get(srv.URL + "/inspections/search?query=abc")
	if err != nil {
		t.Fatalf("search request: %v", err)
	}
	defer resp.Body.Close()
	var searched struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searched); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if searched.Count != 1 {
		t.Fatalf("expected 1 search hit, got %d", searched.Count)
	}

	over, err := client.Get(srv.URL + "/inspections/overdue")
	if err != nil {
		t.Fatalf("overdue request: %v", err)
	}
	defer over.Body.Close()
	var overdue struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(over.Body).Decode(&overdue); err != nil {
		t.Fatalf("decode overdue: %v", err)
	}
	if overdue.Count != 1 {
		t.Fatalf("expected 1 overdue record, got %d", overdue.Count)
	}
}

func TestUsersAdminOnly(t *testing.T) {
	srv := newTestServer(t, Config{})
	admin := newClient(t)
	signUp(t, admin, srv.URL, "admin@example.com")
	user := newClient(t)
	signUp(t, user, srv.URL, "user@example.com")

	resp, err := admin.Get(srv.URL + "/users")
	if err != nil {
		t.Fatalf("admin users request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.StatusCode)
	}

	denied, err := user.Get(srv.URL + "/users")
	if err != nil {
		t.Fatalf("user users request: %v", err)
	}
	denied.Body.Close()
	if denied.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 for non-admin, got %d", denied.StatusCode)
	}
}

func TestServeBlobStreams(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "owner@example.com")
	created := createInspection(t, client, srv.URL, nil, smallPNG(t))
	blobID := created["imageBlobId"].(string)

	resp, err := http.Get(srv.URL + "/images/" + blobID)
	if err != nil {
		t.Fatalf("blob request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", ct)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newClient(t)
	signUp(t, client, srv.URL, "owner@example.com")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/logout", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("logout request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}

	after, err := client.Get(srv.URL + "/inspections")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	after.Body.Close()
	if after.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 after logout, got %d", after.StatusCode)
	}
}
