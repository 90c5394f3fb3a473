package v1

import "net/http"

type Client struct {
	Transport *Transport
	TimeClock *TimeClockEndpoint
	Jobs      *JobsEndpoint
}

// NewClient initializes the API client. httpClient may carry a wrapping
// RoundTripper such as the replay interceptor.
func NewClient(baseURL string, token string, httpClient *http.Client) *Client {
	t := NewTransport(baseURL, token, httpClient)
	return &Client{
		Transport: t,
		TimeClock: &TimeClockEndpoint{transport: t},
		Jobs:      &JobsEndpoint{transport: t},
	}
}
