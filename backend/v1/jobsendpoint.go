package v1

import (
	"context"
	"encoding/json"
	"fmt"

	"axiapac.com/timeclock/backend/v1/common"
	"axiapac.com/timeclock/model"
)

type JobsEndpoint struct {
	transport *Transport
}

// List fetches the job summaries used to hydrate the offline job cache.
func (this *JobsEndpoint) List(ctx context.Context) ([]model.Job, error) {
	resp, err := this.transport.Get(ctx, "/jobs", nil)
	if err != nil {
		return nil, err
	}

	var result common.APIResponse[[]model.Job]
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return result.Data, nil
}
