package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"axiapac.com/timeclock/backend/v1/common"
	"axiapac.com/timeclock/model"
)

var punchPath = regexp.MustCompile(`/time/(clock-in|clock-out|break-start|break-end)$`)

// Interceptor sits in front of the real transport. Punch POSTs that fail at the
// transport level are written to the sync queue and answered with a synthetic
// 202 so the caller does not see an error.
type Interceptor struct {
	Next    http.RoundTripper
	SyncTag string
	worker  *Worker
}

// Interceptor wraps next. A nil next means http.DefaultTransport and an empty
// syncTag means the worker's own tag.
func (w *Worker) Interceptor(next http.RoundTripper, syncTag string) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	if syncTag == "" {
		syncTag = w.opts.SyncTag
	}
	return &Interceptor{Next: next, SyncTag: syncTag, worker: w}
}

// IsPunchRequest reports whether req is a POST to a time-clock endpoint.
func IsPunchRequest(req *http.Request) bool {
	return req.Method == http.MethodPost && punchPath.MatchString(req.URL.Path)
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if !IsPunchRequest(req) || !i.worker.Active() || req.Body == nil {
		return i.Next.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}

	outgoing := req.Clone(req.Context())
	outgoing.Body = io.NopCloser(bytes.NewReader(body))
	outgoing.ContentLength = int64(len(body))

	resp, err := i.Next.RoundTrip(outgoing)
	if err == nil {
		return resp, nil
	}
	if errors.Is(req.Context().Err(), context.Canceled) {
		return nil, err
	}

	eventUUID, idErr := punchEventUUID(body)
	if idErr != nil {
		i.worker.log.Warn("punch request not queued", "url", req.URL.String(), "error", idErr)
		return nil, err
	}

	queued := model.QueuedRequest{
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: flattenHeader(req.Header),
		Body:    body,
	}
	if qErr := i.worker.enqueue(context.WithoutCancel(req.Context()), eventUUID, queued, i.SyncTag); qErr != nil {
		i.worker.log.Warn("punch request not queued", "event_uuid", eventUUID, "error", qErr)
		return nil, fmt.Errorf("%w: %w", ErrNotQueued, err)
	}

	i.worker.log.Info("punch request queued for background sync", "event_uuid", eventUUID, "cause", err)
	return acceptedResponse(req, eventUUID), nil
}

func punchEventUUID(body []byte) (string, error) {
	var payload struct {
		EventUUID string `json:"event_uuid"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", errNotPunch, err)
	}
	if payload.EventUUID == "" {
		return "", fmt.Errorf("%w: missing event_uuid", errNotPunch)
	}
	return payload.EventUUID, nil
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func acceptedResponse(req *http.Request, eventUUID string) *http.Response {
	body, _ := json.Marshal(common.QueuedResponse{Queued: true, EventUUID: eventUUID})
	return &http.Response{
		Status:        "202 Accepted",
		StatusCode:    http.StatusAccepted,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
