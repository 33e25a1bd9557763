package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/google/uuid"
)

// maxReportBytes caps an uploaded work report.
const maxReportBytes = 10 << 20

var ErrInvalidWorkReport = errors.New("invalid work report: only pdf, doc, docx, xls, xlsx, csv, txt, jpg, jpeg, png allowed")

var allowedReportExts = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".csv", ".txt", ".jpg", ".jpeg", ".png"}

// Document is an uploaded work report as received from the client.
type Document struct {
	File     io.Reader
	Filename string
}

// WorkReport returns the attachment that stores doc under the employee's
// attendance folder.
func (r *Recorder) WorkReport(employeeID string, doc *Document) attendance.Attachment {
	return &workReport{recorder: r, employeeID: employeeID, doc: doc}
}

type workReport struct {
	recorder   *Recorder
	employeeID string
	doc        *Document
}

// Store implements attendance.Attachment. Reports land in
// attendance/{employee}/{date}/WORK_REPORT-{uuid}{ext}.
func (w *workReport) Store(ctx context.Context) (string, error) {
	ext := strings.ToLower(filepath.Ext(w.doc.Filename))
	if !slices.Contains(allowedReportExts, ext) {
		return "", ErrInvalidWorkReport
	}

	buffer, err := io.ReadAll(io.LimitReader(w.doc.File, maxReportBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read work report: %w", err)
	}
	if len(buffer) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidWorkReport)
	}
	if len(buffer) > maxReportBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidWorkReport, maxReportBytes)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	date := w.recorder.now().In(w.recorder.loc).Format(attendance.DateLayout)
	key := path.Join("attendance", w.employeeID, date, "WORK_REPORT-"+id.String()+ext)

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ref, err := w.recorder.storage.Upload(ctx, bytes.NewReader(buffer), key, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload work report: %w", err)
	}
	return ref, nil
}

// Discard implements attendance.Attachment.
func (w *workReport) Discard(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if err := w.recorder.storage.Delete(ctx, ref); err != nil {
		return fmt.Errorf("failed to delete work report: %w", err)
	}
	slog.Info("Discarded work report", "report_ref", ref, "employee_id", w.employeeID)
	return nil
}
