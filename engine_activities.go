package sikad

import (
	"context"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/validate"
)

// Activities lists the activities visible to the caller.
func (e *Engine) Activities(ctx context.Context) ([]api.Activity, error) {
	return authed(ctx, e, "list activities", e.client.GetActivities)
}

// CreateActivity adds an activity. Only program heads are allowed by the backend.
func (e *Engine) CreateActivity(ctx context.Context, in api.ActivityInput) (api.Activity, error) {
	if err := validate.Activity(in); err != nil {
		return api.Activity{}, e.invalid(err)
	}
	return authed(ctx, e, "create activity", func(ctx context.Context, token string) api.Response[api.Activity] {
		return e.client.CreateActivity(ctx, token, in)
	})
}

func (e *Engine) UpdateActivity(ctx context.Context, id int64, in api.ActivityInput) (api.Activity, error) {
	if err := validate.Activity(in); err != nil {
		return api.Activity{}, e.invalid(err)
	}
	return authed(ctx, e, "update activity", func(ctx context.Context, token string) api.Response[api.Activity] {
		return e.client.UpdateActivity(ctx, token, id, in)
	})
}

func (e *Engine) DeleteActivity(ctx context.Context, id int64) error {
	_, err := authed(ctx, e, "delete activity", func(ctx context.Context, token string) api.Response[api.Empty] {
		return e.client.DeleteActivity(ctx, token, id)
	})
	return err
}

// ClinicAdvisors lists the advisors an activity can be assigned to.
func (e *Engine) ClinicAdvisors(ctx context.Context) ([]api.ClinicAdvisor, error) {
	return authed(ctx, e, "list clinic advisors", e.client.GetClinicAdvisors)
}
