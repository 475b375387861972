package app

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"

	"patlogger/internal/domain"
	"patlogger/internal/qr"
	"patlogger/internal/report"
	"patlogger/internal/util"
)

// Certificate renders the public PDF certificate for an inspection. The
// lookup is case-insensitive; the unguessable record ID is the only
// access control on this path. The returned filename is derived from the
// appliance serial.
func (a *App) Certificate(ctx context.Context, id string) ([]byte, string, error) {
	insp, ok, err := a.store.GetInspection(id)
	if err != nil {
		return nil, "", fmt.Errorf("fetch inspection: %w", err)
	}
	if !ok {
		return nil, "", ErrNotFound
	}

	qrPNG, err := qr.Encode(a.baseURL, insp.ID)
	if err != nil {
		return nil, "", fmt.Errorf("encode qr: %w", err)
	}

	cert := report.Certificate{
		Inspection:      insp,
		QRCodePNG:       qrPNG,
		VerificationURL: qr.VerificationURL(a.baseURL, insp.ID),
		GeneratedAt:     a.now(),
	}
	if insp.HasImage() {
		data, err := a.imageBytes(ctx, insp.ImageBlobID)
		if err != nil {
			// A broken attachment must not block certificate
			// delivery.
			util.LoggerFromContext(ctx).Warn("certificate image unavailable",
				slog.String("inspection_id", insp.ID),
				slog.String("error", err.Error()))
			cert.ImageUnavailable = "Image could not be displayed"
		} else {
			cert.ImageJPEG = data
		}
	}

	pdf, err := report.Render(cert)
	if err != nil {
		return nil, "", fmt.Errorf("render certificate: %w", err)
	}

	if err := a.store.TouchPDFAccess(insp.ID, a.now().UTC()); err != nil {
		util.LoggerFromContext(ctx).Warn("record certificate access",
			slog.String("inspection_id", insp.ID),
			slog.String("error", err.Error()))
	}
	return pdf, "PAT_Certificate_" + insp.Serial + ".pdf", nil
}

// QRCode returns the verification QR PNG for an owned record.
func (a *App) QRCode(user domain.User, id string) ([]byte, error) {
	insp, err := a.GetInspectionOwned(user, id)
	if err != nil {
		return nil, err
	}
	return qr.Encode(a.baseURL, insp.ID)
}

func (a *App) imageBytes(ctx context.Context, blobID string) ([]byte, error) {
	blob, ok, err := a.store.GetBlob(blobID)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	data, err := a.blobs.Get(ctx, blob.Key)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	// Corrupt stored bytes would abort the whole PDF render, so they are
	// treated the same as an unreadable blob.
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}
