// Package graph serves the GraphQL API over the member, attendance and credential
// stores.
package graph

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	graphql "github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"root/internal/apperr"
	"root/internal/auth"
	"root/internal/member"
	"root/internal/model"
	"root/internal/queue"
	"root/internal/store"
)

//go:embed schema.graphql
var sdl string

// MemberStore is the member, streak and project persistence.
type MemberStore interface {
	Create(ctx context.Context, in model.NewMember) (model.Member, error)
	Get(ctx context.Context, id int32) (model.Member, error)
	List(ctx context.Context, f member.Filter) ([]model.Member, error)
	Streak(ctx context.Context, memberID int32) (model.StatusUpdateStreak, error)
	Streaks(ctx context.Context) ([]model.StatusUpdateStreak, error)
	IncrementStreak(ctx context.Context, memberID int32) (model.StatusUpdateStreak, error)
	ResetStreak(ctx context.Context, memberID int32) (model.StatusUpdateStreak, error)
	SetProject(ctx context.Context, memberID int32, title string) (model.Project, error)
	Projects(ctx context.Context, memberID *int32) ([]model.Project, error)
}

// AttendanceStore is the read side of attendance.
type AttendanceStore interface {
	ByMember(ctx context.Context, memberID int32) ([]model.AttendanceRecord, error)
	ByDate(ctx context.Context, on string) ([]model.AttendanceWithMember, error)
	AbsentsByMonth(ctx context.Context, on time.Time) ([]model.AbsenceCount, error)
	Summaries(ctx context.Context, memberID int32) ([]model.AttendanceSummary, error)
}

// AttendanceMarker records signed presence reports.
type AttendanceMarker interface {
	MarkAttendance(ctx context.Context, memberID int32, date, signature string) (model.AttendanceRecord, error)
}

// KeyLookup reports whether a member holds a credential.
type KeyLookup interface {
	Exists(ctx context.Context, memberID int32) (bool, error)
}

// Publisher enqueues background work.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Deps are the collaborators of the resolver.
type Deps struct {
	Members    MemberStore
	Attendance AttendanceStore
	Marker     AttendanceMarker
	Keys       KeyLookup
	Queue      Publisher
	Location   *time.Location
	Logger     *zap.Logger
}

// Resolver is the root resolver for Query and Mutation.
type Resolver struct {
	members    MemberStore
	attendance AttendanceStore
	marker     AttendanceMarker
	keys       KeyLookup
	queue      Publisher
	loc        *time.Location
	logger     *zap.Logger
	validate   *validator.Validate
	now        func() time.Time
}

// NewResolver builds the root resolver.
func NewResolver(d Deps) *Resolver {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Resolver{
		members:    d.Members,
		attendance: d.Attendance,
		marker:     d.Marker,
		keys:       d.Keys,
		queue:      d.Queue,
		loc:        d.Location,
		logger:     d.Logger,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// NewSchema parses the schema against r.
func NewSchema(r *Resolver) *graphql.Schema {
	return graphql.MustParseSchema(sdl, r, graphql.MaxDepth(8))
}

// requireKey rejects mutations from requests without a verified credential.
func requireKey(ctx context.Context, op string) error {
	if _, ok := auth.MemberFromContext(ctx); !ok {
		return apperr.Auth(op, "valid api key required")
	}
	return nil
}

// storageErr logs the store failure and returns the client-safe error.
func (r *Resolver) storageErr(op string, err error) error {
	r.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	return apperr.Storage(op, err)
}

func parseDate(op, s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(model.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, apperr.Validation(op, "date must be YYYY-MM-DD")
	}
	return t, nil
}

// Queries

func (r *Resolver) Members(ctx context.Context, args struct {
	Year    *int32
	GroupID *int32
}) ([]*memberResolver, error) {
	rows, err := r.members.List(ctx, member.Filter{Year: args.Year, GroupID: args.GroupID})
	if err != nil {
		return nil, r.storageErr("members", err)
	}
	out := make([]*memberResolver, 0, len(rows))
	for _, m := range rows {
		out = append(out, &memberResolver{m: m, root: r})
	}
	return out, nil
}

func (r *Resolver) Member(ctx context.Context, args struct{ MemberID int32 }) (*memberResolver, error) {
	m, err := r.members.Get(ctx, args.MemberID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.storageErr("member", err)
	}
	return &memberResolver{m: m, root: r}, nil
}

func (r *Resolver) Attendance(ctx context.Context, args struct{ MemberID int32 }) ([]*attendanceResolver, error) {
	rows, err := r.attendance.ByMember(ctx, args.MemberID)
	if err != nil {
		return nil, r.storageErr("attendance", err)
	}
	out := make([]*attendanceResolver, 0, len(rows))
	for _, a := range rows {
		out = append(out, &attendanceResolver{a})
	}
	return out, nil
}

func (r *Resolver) AttendanceByDate(ctx context.Context, args struct{ Date string }) ([]*attendanceInfoResolver, error) {
	const op = "attendanceByDate"
	if _, err := parseDate(op, args.Date, r.loc); err != nil {
		return nil, err
	}
	rows, err := r.attendance.ByDate(ctx, args.Date)
	if err != nil {
		return nil, r.storageErr(op, err)
	}
	out := make([]*attendanceInfoResolver, 0, len(rows))
	for _, a := range rows {
		out = append(out, &attendanceInfoResolver{a})
	}
	return out, nil
}

func (r *Resolver) AbsentsByMonth(ctx context.Context, args struct{ Date string }) ([]*absenceResolver, error) {
	const op = "absentsByMonth"
	on, err := parseDate(op, args.Date, r.loc)
	if err != nil {
		return nil, err
	}
	rows, err := r.attendance.AbsentsByMonth(ctx, on)
	if err != nil {
		return nil, r.storageErr(op, err)
	}
	out := make([]*absenceResolver, 0, len(rows))
	for _, a := range rows {
		out = append(out, &absenceResolver{a})
	}
	return out, nil
}

func (r *Resolver) Streak(ctx context.Context, args struct{ MemberID int32 }) (*streakResolver, error) {
	s, err := r.members.Streak(ctx, args.MemberID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.storageErr("streak", err)
	}
	return &streakResolver{s}, nil
}

func (r *Resolver) Streaks(ctx context.Context) ([]*streakResolver, error) {
	rows, err := r.members.Streaks(ctx)
	if err != nil {
		return nil, r.storageErr("streaks", err)
	}
	out := make([]*streakResolver, 0, len(rows))
	for _, s := range rows {
		out = append(out, &streakResolver{s})
	}
	return out, nil
}

func (r *Resolver) Projects(ctx context.Context, args struct{ MemberID *int32 }) ([]*projectResolver, error) {
	rows, err := r.members.Projects(ctx, args.MemberID)
	if err != nil {
		return nil, r.storageErr("projects", err)
	}
	out := make([]*projectResolver, 0, len(rows))
	for _, p := range rows {
		out = append(out, &projectResolver{p})
	}
	return out, nil
}

func (r *Resolver) HasAPIKey(ctx context.Context, args struct{ MemberID int32 }) (bool, error) {
	ok, err := r.keys.Exists(ctx, args.MemberID)
	if err != nil {
		return false, r.storageErr("hasApiKey", err)
	}
	return ok, nil
}

// Mutations

type newMemberInput struct {
	RollNo     string
	Name       string
	Email      string
	Sex        *string
	Year       int32
	Hostel     *string
	MacAddress *string
	DiscordID  *string
	GitHubUser *string
	GroupID    *int32
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *Resolver) CreateMember(ctx context.Context, args struct{ Input newMemberInput }) (*memberResolver, error) {
	const op = "createMember"
	if err := requireKey(ctx, op); err != nil {
		return nil, err
	}
	in := model.NewMember{
		RollNo:     args.Input.RollNo,
		Name:       args.Input.Name,
		Email:      args.Input.Email,
		Sex:        deref(args.Input.Sex),
		Year:       args.Input.Year,
		Hostel:     deref(args.Input.Hostel),
		MacAddress: deref(args.Input.MacAddress),
		DiscordID:  args.Input.DiscordID,
		GitHubUser: args.Input.GitHubUser,
	}
	if args.Input.GroupID != nil {
		in.GroupID = *args.Input.GroupID
	}
	if err := r.validate.Struct(in); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}
	m, err := r.members.Create(ctx, in)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Validation(op, "roll number, email or handle already registered")
		}
		return nil, r.storageErr(op, err)
	}
	r.logger.Info("member created", zap.Int32("member_id", m.ID))
	return &memberResolver{m: m, root: r}, nil
}

type markAttendanceInput struct {
	MemberID      int32
	Date          string
	HmacSignature string
}

func (r *Resolver) MarkAttendance(ctx context.Context, args struct{ Input markAttendanceInput }) (*attendanceResolver, error) {
	if err := requireKey(ctx, "markAttendance"); err != nil {
		return nil, err
	}
	rec, err := r.marker.MarkAttendance(ctx, args.Input.MemberID, args.Input.Date, args.Input.HmacSignature)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindStorage {
			r.logger.Error("storage failure", zap.String("op", "markAttendance"), zap.Error(apperr.Cause(err)))
		}
		return nil, err
	}
	return &attendanceResolver{rec}, nil
}

func (r *Resolver) IncrementStreak(ctx context.Context, args struct{ MemberID int32 }) (*streakResolver, error) {
	const op = "incrementStreak"
	if err := requireKey(ctx, op); err != nil {
		return nil, err
	}
	s, err := r.members.IncrementStreak(ctx, args.MemberID)
	if err != nil {
		return nil, r.storeErr(op, err)
	}
	return &streakResolver{s}, nil
}

func (r *Resolver) ResetStreak(ctx context.Context, args struct{ MemberID int32 }) (*streakResolver, error) {
	const op = "resetStreak"
	if err := requireKey(ctx, op); err != nil {
		return nil, err
	}
	s, err := r.members.ResetStreak(ctx, args.MemberID)
	if err != nil {
		return nil, r.storeErr(op, err)
	}
	return &streakResolver{s}, nil
}

func (r *Resolver) SetProject(ctx context.Context, args struct {
	MemberID int32
	Title    string
}) (*projectResolver, error) {
	const op = "setProject"
	if err := requireKey(ctx, op); err != nil {
		return nil, err
	}
	if err := r.validate.Var(args.Title, "required,max=256"); err != nil {
		return nil, apperr.Validation(op, "title must be 1-256 characters")
	}
	p, err := r.members.SetProject(ctx, args.MemberID, args.Title)
	if err != nil {
		return nil, r.storeErr(op, err)
	}
	return &projectResolver{p}, nil
}

// RunDailyTask queues the daily batch for date, or for today when date is omitted.
func (r *Resolver) RunDailyTask(ctx context.Context, args struct{ Date *string }) (bool, error) {
	const op = "runDailyTask"
	if err := requireKey(ctx, op); err != nil {
		return false, err
	}
	day := r.now().In(r.loc)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc)
	if args.Date != nil {
		var err error
		if day, err = parseDate(op, *args.Date, r.loc); err != nil {
			return false, err
		}
	}
	if err := r.queue.Publish(ctx, queue.NewDailyBatch(day)); err != nil {
		return false, r.storageErr(op, err)
	}
	caller, _ := auth.MemberFromContext(ctx)
	r.logger.Info("daily batch queued", zap.String("date", day.Format(model.DateLayout)), zap.Int32("requested_by", caller))
	return true, nil
}
