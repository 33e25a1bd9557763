package attendance

import (
	"context"
	"errors"
	"fmt"
)

type CaptureKind int

const (
	// CaptureFailed means permission was denied or a sensor was unavailable.
	CaptureFailed CaptureKind = iota
	// CaptureComplete carries coordinates, a resolved address and a photo.
	CaptureComplete
	// CapturePartial carries coordinates and a photo; reverse geocoding failed.
	CapturePartial
)

func (k CaptureKind) String() string {
	switch k {
	case CaptureComplete:
		return "complete"
	case CapturePartial:
		return "partial"
	default:
		return "failed"
	}
}

// CaptureResult is the tagged outcome of one evidence capture.
type CaptureResult struct {
	Kind        CaptureKind
	Coordinates Coordinates
	Address     string
	PhotoRef    string
	Cause       error // why capture failed, or why geocoding failed
}

func CompleteCapture(coords Coordinates, address, photoRef string) CaptureResult {
	return CaptureResult{Kind: CaptureComplete, Coordinates: coords, Address: address, PhotoRef: photoRef}
}

func PartialCapture(coords Coordinates, photoRef string, geocodeErr error) CaptureResult {
	return CaptureResult{Kind: CapturePartial, Coordinates: coords, PhotoRef: photoRef, Cause: geocodeErr}
}

func FailedCapture(cause error) CaptureResult {
	return CaptureResult{Kind: CaptureFailed, Cause: cause}
}

// Capturer supplies the evidence for one check action. A non-nil error
// is an infrastructure failure (e.g. photo storage down) and propagates
// as-is; sensor and permission failures are reported as CaptureFailed.
type Capturer interface {
	Capture(ctx context.Context) (CaptureResult, error)
}

// CapturerFunc adapts a function to Capturer.
type CapturerFunc func(ctx context.Context) (CaptureResult, error)

func (f CapturerFunc) Capture(ctx context.Context) (CaptureResult, error) {
	return f(ctx)
}

// Discarder is implemented by capturers that store evidence before the
// action is recorded. Discard releases it when the action is rejected.
type Discarder interface {
	Discard(ctx context.Context, result CaptureResult) error
}

// Attachment is an optional document stored with a check-out. Store
// returns its storage reference; Discard deletes it when the check-out is
// rejected.
type Attachment interface {
	Store(ctx context.Context) (string, error)
	Discard(ctx context.Context, ref string) error
}

// WorkLog is what the employee reports about the day at check-out.
type WorkLog struct {
	Summary string
	Report  Attachment // nil when no document was attached
}

var errMissingPhoto = errors.New("photo reference missing")

// Evidence converts the result into record evidence. Failed captures and
// captures missing a photo yield ErrEvidenceUnavailable; partial captures
// get the coordinate fallback label instead of an address.
func (r CaptureResult) Evidence() (Evidence, error) {
	switch r.Kind {
	case CaptureComplete, CapturePartial:
	default:
		if r.Cause != nil {
			return Evidence{}, fmt.Errorf("%w: %v", ErrEvidenceUnavailable, r.Cause)
		}
		return Evidence{}, ErrEvidenceUnavailable
	}

	if r.PhotoRef == "" {
		return Evidence{}, fmt.Errorf("%w: %v", ErrEvidenceUnavailable, errMissingPhoto)
	}

	loc := Location{Coordinates: r.Coordinates}
	if r.Kind == CaptureComplete && r.Address != "" {
		loc.Address = r.Address
		loc.AddressResolved = true
	} else {
		loc.Address = FormatCoordinates(r.Coordinates)
	}

	return Evidence{Location: loc, PhotoRef: r.PhotoRef}, nil
}

// FormatCoordinates is the address label used when reverse geocoding fails.
func FormatCoordinates(c Coordinates) string {
	return fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
}
