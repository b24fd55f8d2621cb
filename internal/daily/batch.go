package daily

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"root/internal/metrics"
	"root/internal/model"
	"root/internal/store"
)

// MemberLister returns every member that should get a row for the day.
type MemberLister interface {
	AllMembers(ctx context.Context) ([]model.Member, error)
}

// RecordStore is the attendance persistence the batch writes through.
type RecordStore interface {
	InsertAbsent(ctx context.Context, memberID int32, day time.Time) (bool, error)
	PresentOn(ctx context.Context, memberID int32, day time.Time) (bool, error)
	IncrementDaysAttended(ctx context.Context, memberID int32, year int, month time.Month) error
}

// Report summarizes one batch execution.
type Report struct {
	Day             time.Time
	Members         int
	Inserted        int
	Existing        int
	Incremented     int
	InsertFailures  int
	SummaryFailures int
	// RowsOnly is set when the summary step was skipped because the day had already
	// been credited.
	RowsOnly bool
	// Err is set when the member list could not be fetched and nothing ran.
	Err error
}

// Aborted reports whether the batch stopped before touching any member.
func (r Report) Aborted() bool { return r.Err != nil }

// Partial reports whether some member was left without a row for the day.
func (r Report) Partial() bool { return r.InsertFailures > 0 }

// Batch runs the daily materialization for a single day.
type Batch struct {
	members MemberLister
	records RecordStore
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewBatch wires a batch. m may be nil.
func NewBatch(members MemberLister, records RecordStore, logger *zap.Logger, m *metrics.Metrics) *Batch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{members: members, records: records, logger: logger, metrics: m}
}

// Run inserts an absent row for every member on day and then credits the monthly
// counter of every member who was present the day before. Failures are logged and
// counted; none of them stop the remaining members.
func (b *Batch) Run(ctx context.Context, day time.Time) Report {
	return b.run(ctx, day, true)
}

// Materialize runs only the insert step. It is safe to repeat for a day whose
// counters were already credited.
func (b *Batch) Materialize(ctx context.Context, day time.Time) Report {
	return b.run(ctx, day, false)
}

func (b *Batch) run(ctx context.Context, day time.Time, summarize bool) Report {
	rep := Report{Day: day, RowsOnly: !summarize}
	log := b.logger.With(zap.String("date", day.Format(model.DateLayout)), zap.Bool("rows_only", !summarize))

	members, err := b.members.AllMembers(ctx)
	if err != nil {
		log.Error("daily batch aborted: fetch members", zap.Error(err))
		rep.Err = err
		b.metrics.BatchRun("aborted", time.Now())
		return rep
	}
	rep.Members = len(members)

	yesterday := day.AddDate(0, 0, -1)
	for _, m := range members {
		b.runMember(ctx, log, m.ID, day, yesterday, summarize, &rep)
	}

	log.Info("daily batch finished",
		zap.Int("members", rep.Members),
		zap.Int("inserted", rep.Inserted),
		zap.Int("existing", rep.Existing),
		zap.Int("incremented", rep.Incremented),
		zap.Int("insert_failures", rep.InsertFailures),
		zap.Int("summary_failures", rep.SummaryFailures),
	)
	if summarize {
		b.metrics.BatchRun("completed", time.Now())
	} else {
		b.metrics.BatchRun("rows_only", time.Now())
	}
	return rep
}

func (b *Batch) runMember(ctx context.Context, log *zap.Logger, memberID int32, day, yesterday time.Time, summarize bool, rep *Report) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("daily batch member panic", zap.Int32("member_id", memberID), zap.Any("panic", r))
			rep.SummaryFailures++
			b.metrics.MemberFailure("panic")
		}
	}()

	inserted, err := b.records.InsertAbsent(ctx, memberID, day)
	switch {
	case err != nil:
		log.Warn("insert attendance failed", zap.Int32("member_id", memberID), zap.Error(err))
		rep.InsertFailures++
		b.metrics.MemberFailure("insert")
	case inserted:
		rep.Inserted++
	default:
		rep.Existing++
	}
	if !summarize {
		return
	}

	present, err := b.records.PresentOn(ctx, memberID, yesterday)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("read yesterday's attendance failed, treating as absent", zap.Int32("member_id", memberID), zap.Error(err))
		}
		return
	}
	if !present {
		return
	}
	if err := b.records.IncrementDaysAttended(ctx, memberID, yesterday.Year(), yesterday.Month()); err != nil {
		log.Warn("update attendance summary failed", zap.Int32("member_id", memberID), zap.Error(err))
		rep.SummaryFailures++
		b.metrics.MemberFailure("summary")
		return
	}
	rep.Incremented++
}
