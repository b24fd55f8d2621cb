package member

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"root/internal/model"
	"root/internal/store"
)

const memberColumns = `member_id, roll_no, name, email, sex, year, hostel, mac_address, discord_id, github_user, group_id, created_at`

// Repository persists members, their status-update streaks and projects in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Filter narrows List. Nil fields match everything.
type Filter struct {
	Year    *int32
	GroupID *int32
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (model.Member, error) {
	var m model.Member
	err := row.Scan(&m.ID, &m.RollNo, &m.Name, &m.Email, &m.Sex, &m.Year, &m.Hostel, &m.MacAddress, &m.DiscordID, &m.GitHubUser, &m.GroupID, &m.CreatedAt)
	return m, err
}

// Create inserts a new member. Duplicate roll numbers, emails or handles yield
// store.ErrConflict.
func (r *Repository) Create(ctx context.Context, in model.NewMember) (model.Member, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO member (roll_no, name, email, sex, year, hostel, mac_address, discord_id, github_user, group_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+memberColumns,
		in.RollNo, in.Name, in.Email, in.Sex, in.Year, in.Hostel, in.MacAddress, in.DiscordID, in.GitHubUser, in.GroupID)
	m, err := scanMember(row)
	if err != nil {
		return model.Member{}, store.MapError(err)
	}
	return m, nil
}

// Get returns a single member by id.
func (r *Repository) Get(ctx context.Context, id int32) (model.Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM member WHERE member_id = $1`, id))
	if err != nil {
		return model.Member{}, store.MapError(err)
	}
	return m, nil
}

// ByGitHubUser returns the member linked to a GitHub login.
func (r *Repository) ByGitHubUser(ctx context.Context, login string) (model.Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM member WHERE lower(github_user) = lower($1)`, login))
	if err != nil {
		return model.Member{}, store.MapError(err)
	}
	return m, nil
}

// List returns members matching f, ordered by id.
func (r *Repository) List(ctx context.Context, f Filter) ([]model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM member`
	args := []any{}
	clauses := []string{}
	if f.Year != nil {
		args = append(args, *f.Year)
		clauses = append(clauses, fmt.Sprintf("year = $%d", len(args)))
	}
	if f.GroupID != nil {
		args = append(args, *f.GroupID)
		clauses = append(clauses, fmt.Sprintf("group_id = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY member_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()

	var res []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, store.MapError(err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// AllMembers returns every member.
func (r *Repository) AllMembers(ctx context.Context) ([]model.Member, error) {
	return r.List(ctx, Filter{})
}

// Streak returns a member's status-update streak.
func (r *Repository) Streak(ctx context.Context, memberID int32) (model.StatusUpdateStreak, error) {
	var s model.StatusUpdateStreak
	err := r.db.QueryRowContext(ctx, `
		SELECT member_id, current_streak, max_streak
		FROM status_update_streak WHERE member_id = $1
	`, memberID).Scan(&s.MemberID, &s.CurrentStreak, &s.MaxStreak)
	if err != nil {
		return model.StatusUpdateStreak{}, store.MapError(err)
	}
	return s, nil
}

// Streaks returns every member's streak.
func (r *Repository) Streaks(ctx context.Context) ([]model.StatusUpdateStreak, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT member_id, current_streak, max_streak FROM status_update_streak ORDER BY member_id`)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()

	var res []model.StatusUpdateStreak
	for rows.Next() {
		var s model.StatusUpdateStreak
		if err := rows.Scan(&s.MemberID, &s.CurrentStreak, &s.MaxStreak); err != nil {
			return nil, store.MapError(err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// IncrementStreak adds one to the current streak, creating the row at 1, and keeps
// max_streak at the highest value seen.
func (r *Repository) IncrementStreak(ctx context.Context, memberID int32) (model.StatusUpdateStreak, error) {
	var s model.StatusUpdateStreak
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO status_update_streak (member_id, current_streak, max_streak)
		VALUES ($1, 1, 1)
		ON CONFLICT (member_id) DO UPDATE SET
			current_streak = status_update_streak.current_streak + 1,
			max_streak = GREATEST(status_update_streak.max_streak, status_update_streak.current_streak + 1)
		RETURNING member_id, current_streak, max_streak
	`, memberID).Scan(&s.MemberID, &s.CurrentStreak, &s.MaxStreak)
	if err != nil {
		return model.StatusUpdateStreak{}, store.MapError(err)
	}
	return s, nil
}

// ResetStreak sets the current streak to zero, leaving max_streak alone.
func (r *Repository) ResetStreak(ctx context.Context, memberID int32) (model.StatusUpdateStreak, error) {
	var s model.StatusUpdateStreak
	err := r.db.QueryRowContext(ctx, `
		UPDATE status_update_streak SET current_streak = 0
		WHERE member_id = $1
		RETURNING member_id, current_streak, max_streak
	`, memberID).Scan(&s.MemberID, &s.CurrentStreak, &s.MaxStreak)
	if err != nil {
		return model.StatusUpdateStreak{}, store.MapError(err)
	}
	return s, nil
}

// SetProject records a project for a member.
func (r *Repository) SetProject(ctx context.Context, memberID int32, title string) (model.Project, error) {
	var p model.Project
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO project (member_id, title) VALUES ($1, $2)
		RETURNING project_id, member_id, title
	`, memberID, title).Scan(&p.ID, &p.MemberID, &p.Title)
	if err != nil {
		return model.Project{}, store.MapError(err)
	}
	return p, nil
}

// Projects returns all projects, or only one member's when memberID is non-nil.
func (r *Repository) Projects(ctx context.Context, memberID *int32) ([]model.Project, error) {
	query := `SELECT project_id, member_id, title FROM project`
	args := []any{}
	if memberID != nil {
		query += ` WHERE member_id = $1`
		args = append(args, *memberID)
	}
	query += ` ORDER BY project_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()

	var res []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.MemberID, &p.Title); err != nil {
			return nil, store.MapError(err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
