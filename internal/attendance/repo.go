package attendance

import (
	"context"
	"database/sql"
	"time"

	"root/internal/model"
	"root/internal/store"
)

// Repository persists attendance rows and monthly summaries in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// day renders the calendar date of t in t's own location. Dates are bound as text and
// cast in SQL so the session timezone never shifts them.
func day(t time.Time) string {
	return t.Format(model.DateLayout)
}

// InsertAbsent creates the (member, day) row as absent with no times. An existing row
// is left untouched and reported as not inserted.
func (r *Repository) InsertAbsent(ctx context.Context, memberID int32, on time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (member_id, date, is_present, time_in, time_out)
		VALUES ($1, $2::date, FALSE, NULL, NULL)
		ON CONFLICT (member_id, date) DO NOTHING
	`, memberID, day(on))
	if err != nil {
		return false, store.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PresentOn reports the presence flag of the member's row for a day. A missing row
// yields store.ErrNotFound.
func (r *Repository) PresentOn(ctx context.Context, memberID int32, on time.Time) (bool, error) {
	var present bool
	err := r.db.QueryRowContext(ctx, `
		SELECT is_present FROM attendance WHERE member_id = $1 AND date = $2::date
	`, memberID, day(on)).Scan(&present)
	if err != nil {
		return false, store.MapError(err)
	}
	return present, nil
}

// IncrementDaysAttended adds one attended day to the member's (year, month) summary,
// creating it at 1.
func (r *Repository) IncrementDaysAttended(ctx context.Context, memberID int32, year int, month time.Month) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_summary (member_id, year, month, days_attended)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (member_id, year, month) DO UPDATE SET
			days_attended = attendance_summary.days_attended + 1
	`, memberID, year, int(month))
	return store.MapError(err)
}

// MarkPresent flips the member's row for the day to present, keeps the first check-in
// time and moves the check-out time to at.
func (r *Repository) MarkPresent(ctx context.Context, memberID int32, on string, at time.Time) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.QueryRowContext(ctx, `
		UPDATE attendance SET
			time_in = COALESCE(time_in, $1),
			time_out = $1,
			is_present = TRUE
		WHERE member_id = $2 AND date = $3::date
		RETURNING attendance_id, member_id, date, is_present, time_in, time_out
	`, at, memberID, on).Scan(&rec.ID, &rec.MemberID, &rec.Date, &rec.IsPresent, &rec.TimeIn, &rec.TimeOut)
	if err != nil {
		return model.AttendanceRecord{}, store.MapError(err)
	}
	return rec, nil
}

// ByMember returns a member's attendance history, newest first.
func (r *Repository) ByMember(ctx context.Context, memberID int32) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT attendance_id, member_id, date, is_present, time_in, time_out
		FROM attendance WHERE member_id = $1
		ORDER BY date DESC
	`, memberID)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()

	var res []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.Date, &rec.IsPresent, &rec.TimeIn, &rec.TimeOut); err != nil {
			return nil, store.MapError(err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ByDate returns every row for a day joined with its member.
func (r *Repository) ByDate(ctx context.Context, on string) ([]model.AttendanceWithMember, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT att.attendance_id, att.member_id, att.date, att.is_present, att.time_in, att.time_out,
		       mem.name, mem.year, mem.group_id
		FROM attendance att
		JOIN member mem ON att.member_id = mem.member_id
		WHERE att.date = $1::date
		ORDER BY mem.name
	`, on)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()

	var res []model.AttendanceWithMember
	for rows.Next() {
		var rec model.AttendanceWithMember
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.Date, &rec.IsPresent, &rec.TimeIn, &rec.TimeOut, &rec.Name, &rec.Year, &rec.GroupID); err != nil {
			return nil, store.MapError(err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// AbsentsByMonth counts absent days per member in the calendar month containing on.
func (r *Repository) AbsentsByMonth(ctx context.Context, on time.Time) ([]model.AbsenceCount, error) {
	start := time.Date(on.Year(), on.Month(), 1, 0, 0, 0, 0, on.Location())
	end := start.AddDate(0, 1, 0)
	rows, err := r.db.QueryContext(ctx, `
		SELECT att.member_id, mem.name, mem.year, COUNT(*) AS absent_days
		FROM attendance att
		JOIN member mem ON att.member_id = mem.member_id
		WHERE att.is_present = FALSE AND att.date >= $1::date AND att.date < $2::date
		GROUP BY att.member_id, mem.name, mem.year
		ORDER BY absent_days DESC, mem.name
	`, day(start), day(end))
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()

	var res []model.AbsenceCount
	for rows.Next() {
		var a model.AbsenceCount
		if err := rows.Scan(&a.MemberID, &a.Name, &a.Year, &a.AbsentDays); err != nil {
			return nil, store.MapError(err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// Summaries returns a member's monthly attendance counters.
func (r *Repository) Summaries(ctx context.Context, memberID int32) ([]model.AttendanceSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT member_id, year, month, days_attended
		FROM attendance_summary WHERE member_id = $1
		ORDER BY year DESC, month DESC
	`, memberID)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()

	var res []model.AttendanceSummary
	for rows.Next() {
		var s model.AttendanceSummary
		if err := rows.Scan(&s.MemberID, &s.Year, &s.Month, &s.DaysAttended); err != nil {
			return nil, store.MapError(err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
