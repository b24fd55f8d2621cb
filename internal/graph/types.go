package graph

import (
	"context"
	"errors"
	"time"

	"root/internal/apperr"
	"root/internal/model"
	"root/internal/store"
)

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

type memberResolver struct {
	m    model.Member
	root *Resolver
}

func (r *memberResolver) MemberID() int32     { return r.m.ID }
func (r *memberResolver) RollNo() string      { return r.m.RollNo }
func (r *memberResolver) Name() string        { return r.m.Name }
func (r *memberResolver) Email() string       { return r.m.Email }
func (r *memberResolver) Sex() string         { return r.m.Sex }
func (r *memberResolver) Year() int32         { return r.m.Year }
func (r *memberResolver) Hostel() string      { return r.m.Hostel }
func (r *memberResolver) MacAddress() string  { return r.m.MacAddress }
func (r *memberResolver) DiscordID() *string  { return r.m.DiscordID }
func (r *memberResolver) GitHubUser() *string { return r.m.GitHubUser }
func (r *memberResolver) GroupID() int32      { return r.m.GroupID }
func (r *memberResolver) CreatedAt() string   { return r.m.CreatedAt.Format(time.RFC3339) }

func (r *memberResolver) Attendance(ctx context.Context) ([]*attendanceResolver, error) {
	return r.root.Attendance(ctx, struct{ MemberID int32 }{r.m.ID})
}

func (r *memberResolver) AttendanceSummary(ctx context.Context) ([]*summaryResolver, error) {
	rows, err := r.root.attendance.Summaries(ctx, r.m.ID)
	if err != nil {
		return nil, r.root.storageErr("attendanceSummary", err)
	}
	out := make([]*summaryResolver, 0, len(rows))
	for _, s := range rows {
		out = append(out, &summaryResolver{s})
	}
	return out, nil
}

func (r *memberResolver) Streak(ctx context.Context) (*streakResolver, error) {
	return r.root.Streak(ctx, struct{ MemberID int32 }{r.m.ID})
}

func (r *memberResolver) Projects(ctx context.Context) ([]*projectResolver, error) {
	id := r.m.ID
	return r.root.Projects(ctx, struct{ MemberID *int32 }{&id})
}

type attendanceResolver struct {
	a model.AttendanceRecord
}

func (r *attendanceResolver) AttendanceID() int32 { return r.a.ID }
func (r *attendanceResolver) MemberID() int32     { return r.a.MemberID }
func (r *attendanceResolver) Date() string        { return r.a.Date.Format(model.DateLayout) }
func (r *attendanceResolver) IsPresent() bool     { return r.a.IsPresent }
func (r *attendanceResolver) TimeIn() *string     { return formatTime(r.a.TimeIn) }
func (r *attendanceResolver) TimeOut() *string    { return formatTime(r.a.TimeOut) }

type attendanceInfoResolver struct {
	a model.AttendanceWithMember
}

func (r *attendanceInfoResolver) MemberID() int32  { return r.a.MemberID }
func (r *attendanceInfoResolver) Name() string     { return r.a.Name }
func (r *attendanceInfoResolver) Year() int32      { return r.a.Year }
func (r *attendanceInfoResolver) GroupID() int32   { return r.a.GroupID }
func (r *attendanceInfoResolver) Date() string     { return r.a.Date.Format(model.DateLayout) }
func (r *attendanceInfoResolver) IsPresent() bool  { return r.a.IsPresent }
func (r *attendanceInfoResolver) TimeIn() *string  { return formatTime(r.a.TimeIn) }
func (r *attendanceInfoResolver) TimeOut() *string { return formatTime(r.a.TimeOut) }

type absenceResolver struct {
	a model.AbsenceCount
}

func (r *absenceResolver) MemberID() int32   { return r.a.MemberID }
func (r *absenceResolver) Name() string      { return r.a.Name }
func (r *absenceResolver) Year() int32       { return r.a.Year }
func (r *absenceResolver) AbsentDays() int32 { return r.a.AbsentDays }

type summaryResolver struct {
	s model.AttendanceSummary
}

func (r *summaryResolver) Year() int32         { return r.s.Year }
func (r *summaryResolver) Month() int32        { return r.s.Month }
func (r *summaryResolver) DaysAttended() int32 { return r.s.DaysAttended }

type streakResolver struct {
	s model.StatusUpdateStreak
}

func (r *streakResolver) MemberID() int32      { return r.s.MemberID }
func (r *streakResolver) CurrentStreak() int32 { return r.s.CurrentStreak }
func (r *streakResolver) MaxStreak() int32     { return r.s.MaxStreak }

type projectResolver struct {
	p model.Project
}

func (r *projectResolver) ProjectID() int32 { return r.p.ID }
func (r *projectResolver) MemberID() int32  { return r.p.MemberID }
func (r *projectResolver) Title() string    { return r.p.Title }

// storeErr turns a repository error into the error kind clients see.
func (r *Resolver) storeErr(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.Validation(op, "member not found")
	case errors.Is(err, store.ErrConflict):
		return apperr.Validation(op, "already exists")
	default:
		return r.storageErr(op, err)
	}
}
