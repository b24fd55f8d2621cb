package model

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Member is a person tracked by the club.
type Member struct {
	ID         int32     `json:"member_id"`
	RollNo     string    `json:"roll_no"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Sex        string    `json:"sex"`
	Year       int32     `json:"year"`
	Hostel     string    `json:"hostel"`
	MacAddress string    `json:"mac_address"`
	DiscordID  *string   `json:"discord_id,omitempty"`
	GitHubUser *string   `json:"github_user,omitempty"`
	GroupID    int32     `json:"group_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMember is the input accepted when an administrator registers a member.
type NewMember struct {
	RollNo     string  `json:"roll_no" validate:"required,max=32"`
	Name       string  `json:"name" validate:"required,max=128"`
	Email      string  `json:"email" validate:"required,email"`
	Sex        string  `json:"sex" validate:"omitempty,max=16"`
	Year       int32   `json:"year" validate:"gt=0"`
	Hostel     string  `json:"hostel" validate:"omitempty,max=64"`
	MacAddress string  `json:"mac_address" validate:"omitempty,mac"`
	DiscordID  *string `json:"discord_id" validate:"omitempty,max=64"`
	GitHubUser *string `json:"github_user" validate:"omitempty,max=64"`
	GroupID    int32   `json:"group_id" validate:"gte=0"`
}

// AttendanceRecord is one member's attendance for one calendar day. At most one
// exists per (member, date).
type AttendanceRecord struct {
	ID        int32      `json:"attendance_id"`
	MemberID  int32      `json:"member_id"`
	Date      time.Time  `json:"date"`
	IsPresent bool       `json:"is_present"`
	TimeIn    *time.Time `json:"time_in,omitempty"`
	TimeOut   *time.Time `json:"time_out,omitempty"`
}

// AttendanceWithMember is an attendance row joined with the member it belongs to.
type AttendanceWithMember struct {
	AttendanceRecord
	Name    string `json:"name"`
	Year    int32  `json:"year"`
	GroupID int32  `json:"group_id"`
}

// AbsenceCount is the number of absent days a member had within a month.
type AbsenceCount struct {
	MemberID   int32  `json:"member_id"`
	Name       string `json:"name"`
	Year       int32  `json:"year"`
	AbsentDays int32  `json:"absent_days"`
}

// AttendanceSummary counts the days a member attended in one month.
type AttendanceSummary struct {
	MemberID     int32 `json:"member_id"`
	Year         int32 `json:"year"`
	Month        int32 `json:"month"`
	DaysAttended int32 `json:"days_attended"`
}

// APICredential holds the irreversible hash of a member's API key. Exactly one
// exists per member.
type APICredential struct {
	MemberID  int32     `json:"member_id"`
	KeyHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusUpdateStreak tracks consecutive daily status updates.
type StatusUpdateStreak struct {
	MemberID      int32 `json:"member_id"`
	CurrentStreak int32 `json:"current_streak"`
	MaxStreak     int32 `json:"max_streak"`
}

// Project is something a member is working on.
type Project struct {
	ID       int32  `json:"project_id"`
	MemberID int32  `json:"member_id"`
	Title    string `json:"title"`
}
