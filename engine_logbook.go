package sikad

import (
	"context"
	"time"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/validate"
)

// CheckIn uploads arrival evidence. A zero At is stamped with the current time.
func (e *Engine) CheckIn(ctx context.Context, in api.CheckInForm) (api.LogbookEntry, error) {
	if err := validate.CheckIn(in); err != nil {
		return api.LogbookEntry{}, e.invalid(err)
	}
	if in.At.IsZero() {
		in.At = time.Now()
	}
	return authed(ctx, e, "check in", func(ctx context.Context, token string) api.Response[api.LogbookEntry] {
		return e.client.CheckIn(ctx, token, in)
	})
}

// CheckOut closes the check-in identified by checkInID.
func (e *Engine) CheckOut(ctx context.Context, checkInID int64, in api.CheckOutForm) (api.LogbookEntry, error) {
	if err := validate.CheckOut(checkInID, in); err != nil {
		return api.LogbookEntry{}, e.invalid(err)
	}
	if in.At.IsZero() {
		in.At = time.Now()
	}
	return authed(ctx, e, "check out", func(ctx context.Context, token string) api.Response[api.LogbookEntry] {
		return e.client.CheckOut(ctx, token, checkInID, in)
	})
}

// Logbooks lists the caller's check-ins, newest first as the backend returns them.
func (e *Engine) Logbooks(ctx context.Context) ([]api.LogbookEntry, error) {
	return authed(ctx, e, "list logbooks", e.client.GetStudentLogbooks)
}

// HasCheckInToday reports whether the caller already checked in today in the
// configured time zone. The check-in button is hidden when it is true.
func (e *Engine) HasCheckInToday(ctx context.Context) (bool, error) {
	entries, err := e.Logbooks(ctx)
	if err != nil {
		return false, err
	}
	loc := e.client.Location()
	return api.HasCheckInOn(entries, time.Now().In(loc), loc), nil
}

// OpenCheckIn returns the most recent entry that has not been checked out.
func (e *Engine) OpenCheckIn(ctx context.Context) (api.LogbookEntry, bool, error) {
	entries, err := e.Logbooks(ctx)
	if err != nil {
		return api.LogbookEntry{}, false, err
	}
	for _, entry := range entries {
		if !entry.CheckedOut() {
			return entry, true, nil
		}
	}
	return api.LogbookEntry{}, false, nil
}

func (e *Engine) LogbookDetails(ctx context.Context, checkInID int64) (api.LogbookDetails, error) {
	return authed(ctx, e, "logbook details", func(ctx context.Context, token string) api.Response[api.LogbookDetails] {
		return e.client.GetLogbookDetails(ctx, token, checkInID)
	})
}

// VerifyLogbook records an advisor's decision on a visit.
func (e *Engine) VerifyLogbook(ctx context.Context, checkInID int64, in api.Verification) (api.LogbookEntry, error) {
	if err := validate.Verification(in); err != nil {
		return api.LogbookEntry{}, e.invalid(err)
	}
	return authed(ctx, e, "verify logbook", func(ctx context.Context, token string) api.Response[api.LogbookEntry] {
		return e.client.VerifyLogbook(ctx, token, checkInID, in)
	})
}

// Statistics returns the dashboard counters for the caller's role.
func (e *Engine) Statistics(ctx context.Context) (api.Statistics, error) {
	return authed(ctx, e, "statistics", e.client.GetStatistics)
}
