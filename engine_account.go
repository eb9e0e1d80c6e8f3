package sikad

import (
	"context"
	"errors"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/session"
	"github.com/MrEthical07/sikad/validate"
)

// RegisterStudent creates a student account. confirm must repeat the password. The
// caller is not signed in afterwards; the app sends them to the login screen.
func (e *Engine) RegisterStudent(ctx context.Context, in api.StudentRegistration, confirm string) (api.Profile, error) {
	if err := validate.StudentRegistration(in, confirm); err != nil {
		return api.Profile{}, e.invalid(err)
	}
	return public(ctx, e, "register student", func(ctx context.Context) api.Response[api.Profile] {
		return e.client.RegisterStudent(ctx, in)
	})
}

// RegisterAdvisor creates an academic or clinic advisor account.
func (e *Engine) RegisterAdvisor(ctx context.Context, in api.AdvisorRegistration, confirm string) (api.Profile, error) {
	if err := validate.AdvisorRegistration(in, confirm); err != nil {
		return api.Profile{}, e.invalid(err)
	}
	return public(ctx, e, "register advisor", func(ctx context.Context) api.Response[api.Profile] {
		return e.client.RegisterAdvisor(ctx, in)
	})
}

// UpdateStudentProfile submits the edit and replaces the cached profile with the
// one the backend returns.
func (e *Engine) UpdateStudentProfile(ctx context.Context, in api.StudentProfileUpdate) (api.Profile, error) {
	if err := validate.StudentProfile(in); err != nil {
		return api.Profile{}, e.invalid(err)
	}
	p, err := authed(ctx, e, "update student profile", func(ctx context.Context, token string) api.Response[api.Profile] {
		return e.client.UpdateStudentProfile(ctx, token, in)
	})
	if err != nil {
		return api.Profile{}, err
	}
	return p, e.replaceProfile(ctx, p)
}

// UpdateAdvisorProfile is [Engine.UpdateStudentProfile] for advisors.
func (e *Engine) UpdateAdvisorProfile(ctx context.Context, in api.AdvisorProfileUpdate) (api.Profile, error) {
	if err := validate.AdvisorProfile(in); err != nil {
		return api.Profile{}, e.invalid(err)
	}
	p, err := authed(ctx, e, "update advisor profile", func(ctx context.Context, token string) api.Response[api.Profile] {
		return e.client.UpdateAdvisorProfile(ctx, token, in)
	})
	if err != nil {
		return api.Profile{}, err
	}
	return p, e.replaceProfile(ctx, p)
}

func (e *Engine) replaceProfile(ctx context.Context, p api.Profile) error {
	// Some backends answer an update with an empty body; keep the cached profile then.
	if p.ID == "" {
		return nil
	}
	err := e.store.ReplaceProfile(ctx, p)
	if errors.Is(err, session.ErrNoSession) {
		return ErrNotAuthenticated
	}
	return err
}

// Stases lists clinical rotations. It works before login for the registration screen.
func (e *Engine) Stases(ctx context.Context) ([]api.Stase, error) {
	return optional(ctx, e, "list stases", e.client.GetStases)
}

// Groups lists student groups. It works before login for the registration screen.
func (e *Engine) Groups(ctx context.Context) ([]api.Group, error) {
	return optional(ctx, e, "list groups", e.client.GetGroups)
}
