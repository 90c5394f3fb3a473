package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"axiapac.com/timeclock/backend/v1/common"
	"axiapac.com/timeclock/model"
)

// SubmitResponse describes a successful (2xx) submission.
type SubmitResponse struct {
	StatusCode int
	// Queued is set when the replay layer accepted the request for later delivery
	// instead of the server.
	Queued  bool
	Receipt *common.PunchReceipt
	Body    []byte
}

type TimeClockEndpoint struct {
	transport *Transport
}

// SubmitPath returns the endpoint path for an event type, e.g. "/time/clock-in".
func SubmitPath(t model.EventType) string {
	return "/time/" + t.Path()
}

// Submit posts the event to its /time/{action} endpoint.
func (this *TimeClockEndpoint) Submit(ctx context.Context, event *model.TimeClockEvent) (*SubmitResponse, error) {
	if !event.Type.Valid() {
		return nil, fmt.Errorf("submit: unknown event type %q", event.Type)
	}

	resp, err := this.transport.Post(ctx, SubmitPath(event.Type), event, nil)
	if err != nil {
		return nil, err
	}

	result := &SubmitResponse{StatusCode: resp.StatusCode, Body: resp.Data}
	if resp.StatusCode == http.StatusAccepted {
		var queued common.QueuedResponse
		if err := json.Unmarshal(resp.Data, &queued); err == nil && queued.Queued {
			result.Queued = true
			return result, nil
		}
	}

	var envelope common.APIResponse[*common.PunchReceipt]
	if err := json.Unmarshal(resp.Data, &envelope); err == nil {
		result.Receipt = envelope.Data
	}
	return result, nil
}
