package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/storage"
	"github.com/google/uuid"
)

// Action names the check action a photo belongs to.
type Action string

const (
	ActionCheckIn  Action = "CHECK_IN"
	ActionCheckOut Action = "CHECK_OUT"
)

// maxUploadBytes caps the photo read into memory before compression.
const maxUploadBytes = 10 << 20

var ErrGeocoderDisabled = errors.New("reverse geocoding disabled")

var (
	errNoLocation = errors.New("location not reported")
	errNoPhoto    = errors.New("photo not provided")
)

// Photo is an uploaded picture as received from the client.
type Photo struct {
	File     io.Reader
	Filename string
}

// Recorder turns device payloads into attendance capturers. Photos are
// compressed and stored during capture; a rejected action deletes them
// again through Discard.
type Recorder struct {
	storage  storage.FileStorage
	geocoder Geocoder // nil disables reverse geocoding
	loc      *time.Location
	now      func() time.Time
}

func NewRecorder(fs storage.FileStorage, geocoder Geocoder, loc *time.Location) *Recorder {
	if loc == nil {
		loc = time.UTC
	}
	return &Recorder{storage: fs, geocoder: geocoder, loc: loc, now: time.Now}
}

// Capturer returns the evidence source for one check action.
func (r *Recorder) Capturer(employeeID string, action Action, payload attendance.LocationPayload, photo *Photo) attendance.Capturer {
	return &capture{recorder: r, employeeID: employeeID, action: action, payload: payload, photo: photo}
}

// Lookup resolves coordinates on behalf of clients that show an address
// before checking in.
func (r *Recorder) Lookup(ctx context.Context, lat, lon float64) (Place, error) {
	if r.geocoder == nil {
		return Place{}, ErrGeocoderDisabled
	}
	return r.geocoder.Reverse(ctx, lat, lon)
}

type capture struct {
	recorder   *Recorder
	employeeID string
	action     Action
	payload    attendance.LocationPayload
	photo      *Photo
}

// Capture implements attendance.Capturer.
func (c *capture) Capture(ctx context.Context) (attendance.CaptureResult, error) {
	if c.payload.CaptureError != "" {
		return attendance.FailedCapture(fmt.Errorf("device reported %s", c.payload.CaptureError)), nil
	}
	if c.payload.Latitude == nil || c.payload.Longitude == nil {
		return attendance.FailedCapture(errNoLocation), nil
	}
	if c.photo == nil || c.photo.File == nil {
		return attendance.FailedCapture(errNoPhoto), nil
	}

	coords := attendance.Coordinates{
		Latitude:  *c.payload.Latitude,
		Longitude: *c.payload.Longitude,
		Accuracy:  c.payload.Accuracy,
	}

	photoRef, err := c.storePhoto(ctx)
	if err != nil {
		return attendance.CaptureResult{}, err
	}

	if c.payload.Address != nil && *c.payload.Address != "" {
		return attendance.CompleteCapture(coords, *c.payload.Address, photoRef), nil
	}

	if c.recorder.geocoder == nil {
		return attendance.PartialCapture(coords, photoRef, ErrGeocoderDisabled), nil
	}
	place, err := c.recorder.geocoder.Reverse(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		return attendance.PartialCapture(coords, photoRef, err), nil
	}
	return attendance.CompleteCapture(coords, place.Address, photoRef), nil
}

// Discard implements attendance.Discarder.
func (c *capture) Discard(ctx context.Context, result attendance.CaptureResult) error {
	if result.PhotoRef == "" {
		return nil
	}
	if err := c.recorder.storage.Delete(ctx, result.PhotoRef); err != nil {
		return fmt.Errorf("failed to delete attendance photo: %w", err)
	}
	slog.Info("Discarded attendance photo", "photo_ref", result.PhotoRef, "employee_id", c.employeeID)
	return nil
}

// storePhoto compresses the photo and uploads it to
// attendance/{employee}/{date}/{action}-{uuid}.jpg.
func (c *capture) storePhoto(ctx context.Context) (string, error) {
	if err := validatePhotoName(c.photo.Filename); err != nil {
		return "", err
	}

	buffer, err := io.ReadAll(io.LimitReader(c.photo.File, maxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	if len(buffer) > maxUploadBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidPhoto, maxUploadBytes)
	}

	compressed, err := compressPhoto(buffer)
	if err != nil {
		return "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	date := c.recorder.now().In(c.recorder.loc).Format(attendance.DateLayout)
	key := path.Join("attendance", c.employeeID, date, fmt.Sprintf("%s-%s.jpg", c.action, id))

	ref, err := c.recorder.storage.Upload(ctx, bytes.NewReader(compressed), key, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to upload attendance photo: %w", err)
	}
	return ref, nil
}
