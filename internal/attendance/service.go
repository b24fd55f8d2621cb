package attendance

import (
	"context"
	"errors"
	"time"

	"root/internal/apperr"
	"root/internal/model"
	"root/internal/store"
)

// Marker is the persistence the mark-present flow needs.
type Marker interface {
	MarkPresent(ctx context.Context, memberID int32, on string, at time.Time) (model.AttendanceRecord, error)
}

// Service validates presence reports from devices before recording them.
type Service struct {
	repo   Marker
	secret []byte
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a service that verifies signatures with secret and stamps times
// in loc.
func NewService(repo Marker, secret string, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, secret: []byte(secret), loc: loc, now: time.Now}
}

// MarkAttendance records that memberID was present on date. The signature must be
// the HMAC produced by Sign with the shared secret.
func (s *Service) MarkAttendance(ctx context.Context, memberID int32, date, signature string) (model.AttendanceRecord, error) {
	const op = "markAttendance"
	if memberID <= 0 {
		return model.AttendanceRecord{}, apperr.Validation(op, "member_id required")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return model.AttendanceRecord{}, apperr.Validation(op, "date must be YYYY-MM-DD")
	}
	if !VerifySignature(s.secret, memberID, date, signature) {
		return model.AttendanceRecord{}, apperr.Auth(op, "HMAC verification failed")
	}

	rec, err := s.repo.MarkPresent(ctx, memberID, date, s.now().In(s.loc))
	if errors.Is(err, store.ErrNotFound) {
		return model.AttendanceRecord{}, apperr.Validation(op, "no attendance record for that member and date")
	}
	if err != nil {
		return model.AttendanceRecord{}, apperr.Storage(op, err)
	}
	return rec, nil
}
