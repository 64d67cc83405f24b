// Bulk renaming of every member of a group: a single-flight, cancellable, rate-paced job.
//
// At most one job runs per process. The job loop polls a cancellation flag before each member, so cancellation takes effect before the next rename, never in the middle of one.
package rename

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("a bulk rename is already running")
	ErrNotRunning     = errors.New("no bulk rename is running")
	ErrNotAdmin       = errors.New("bulk rename requires an admin")
)

const (
	DefaultDelay    = 2 * time.Second
	DefaultUnitCost = 2 * time.Second
)

// Platform capabilities needed by the rename loop.
type Roster interface {
	RenameMember(ctx context.Context, groupID, userID, card string) error
	// Member IDs, in the platform's roster order.
	ListMembers(ctx context.Context, groupID string) ([]string, error)
}

type Admins interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type Request struct {
	GroupID     string
	RequesterID string
	// ID of the bot itself; never renamed
	SelfID string
	Prefix string
	// clear every card instead of numbering
	Reset bool
}

type Job struct {
	GroupID   string
	Prefix    string
	Reset     bool
	SelfID    string
	Members   []string
	StartedAt time.Time
	// announced up front: UnitCost per roster member
	Estimate time.Duration

	cancelled atomic.Bool
}

func (j *Job) Cancelled() bool {
	return j.cancelled.Load()
}

// Card for the member at roster position `idx`. The index counts every roster entry, including the skipped bot.
func (j *Job) CardFor(idx int) string {
	if j.Reset {
		return ""
	}
	return fmt.Sprintf("%s#%04d", j.Prefix, idx)
}

type Result struct {
	Renamed   int
	Failed    int
	Cancelled bool
	Elapsed   time.Duration
}

type Runner struct {
	Roster   Roster
	Admins   Admins
	Logger   *slog.Logger
	Delay    time.Duration
	UnitCost time.Duration

	current atomic.Pointer[Job]
	// for tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewRunner(roster Roster, admins Admins, logger *slog.Logger, delay time.Duration) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Roster:   roster,
		Admins:   admins,
		Logger:   logger.With("component", "rename"),
		Delay:    delay,
		UnitCost: DefaultUnitCost,
	}
}

// Whether a job is currently running.
func (r *Runner) Running() bool {
	return r.current.Load() != nil
}

// Validates the request, fetches the roster and claims the single-flight slot. The caller then drives the job with `Run`.
func (r *Runner) Start(ctx context.Context, req Request) (*Job, error) {
	ok, err := r.Admins.IsAdmin(ctx, req.RequesterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAdmin
	}
	if r.Running() {
		return nil, ErrAlreadyRunning
	}
	members, err := r.Roster.ListMembers(ctx, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("fetching group roster: %w", err)
	}
	job := &Job{
		GroupID:   req.GroupID,
		Prefix:    req.Prefix,
		Reset:     req.Reset,
		SelfID:    req.SelfID,
		Members:   members,
		StartedAt: r.timeNow(),
		Estimate:  r.UnitCost * time.Duration(len(members)),
	}
	if !r.current.CompareAndSwap(nil, job) {
		return nil, ErrAlreadyRunning
	}
	r.Logger.Info("bulk rename started", "group", job.GroupID, "members", len(members), "reset", job.Reset)
	return job, nil
}

// Renames every member of the job, pausing `Delay` between members. Releases the single-flight slot on return.
//
// Rename failures are counted and skipped. A cancelled context stops the loop like `Cancel` does.
func (r *Runner) Run(ctx context.Context, job *Job) Result {
	defer r.current.CompareAndSwap(job, nil)

	var res Result
	for i, uid := range job.Members {
		if job.Cancelled() || ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		if uid == job.SelfID {
			continue
		}
		if err := r.Roster.RenameMember(ctx, job.GroupID, uid, job.CardFor(i)); err != nil {
			res.Failed++
			renameFailureCount.Inc()
			r.Logger.Warn("failed to rename member", "group", job.GroupID, "user", uid, "err", err)
		} else {
			res.Renamed++
			renameCount.Inc()
		}
		if err := r.pause(ctx); err != nil {
			res.Cancelled = true
			break
		}
	}
	res.Elapsed = r.timeNow().Sub(job.StartedAt)
	r.Logger.Info("bulk rename finished", "group", job.GroupID, "renamed", res.Renamed, "failed", res.Failed, "cancelled", res.Cancelled, "elapsed", res.Elapsed)
	return res
}

// Flags the running job to stop before its next member.
func (r *Runner) Cancel() error {
	job := r.current.Load()
	if job == nil {
		return ErrNotRunning
	}
	job.cancelled.Store(true)
	r.Logger.Info("bulk rename cancelled", "group", job.GroupID)
	return nil
}

func (r *Runner) pause(ctx context.Context) error {
	if r.sleep != nil {
		return r.sleep(ctx, r.Delay)
	}
	if r.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(r.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) timeNow() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}
