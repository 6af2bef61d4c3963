package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
)

// Client submits workouts to a running Mapty server over HTTP.
type Client struct {
	serverURL  string
	httpClient *http.Client
	backoff    time.Duration
}

var _ Sink = (*Client)(nil)

// NewClient creates a new HTTP client for the Mapty server.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

type submitBody struct {
	session.FormValues
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SubmitNewWorkout POSTs sub to the server's workouts endpoint. A 400
// response is returned as ErrRejected. Other failures are retried up to
// 3 times with exponential backoff.
func (c *Client) SubmitNewWorkout(ctx context.Context, sub session.Submission) (models.Workout, error) {
	body := submitBody{
		FormValues: session.FormValues{
			Type:     sub.Type,
			Distance: sub.Distance,
			Duration: sub.Duration,
		},
		Lat: sub.Coords.Lat,
		Lng: sub.Coords.Lng,
	}
	if sub.Type == string(models.KindCycling) {
		body.Elevation = sub.CadenceOrElevation
	} else {
		body.Cadence = sub.CadenceOrElevation
	}
	data, err := json.Marshal(body)
	if err != nil {
		return models.Workout{}, fmt.Errorf("marshaling submission: %w", err)
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return models.Workout{}, ctx.Err()
			}
		}

		w, retry, err := c.post(ctx, data)
		if err == nil || !retry {
			return w, err
		}
		lastErr = err
	}
	return models.Workout{}, fmt.Errorf("after 3 attempts: %w", lastErr)
}

func (c *Client) post(ctx context.Context, data []byte) (models.Workout, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/workouts", bytes.NewReader(data))
	if err != nil {
		return models.Workout{}, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Workout{}, true, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusCreated:
		var w models.Workout
		if err := json.Unmarshal(body, &w); err != nil {
			return models.Workout{}, false, fmt.Errorf("decoding workout: %w", err)
		}
		return w, false, nil
	case resp.StatusCode == http.StatusBadRequest:
		return models.Workout{}, false, fmt.Errorf("%w: %s", ErrRejected, bytes.TrimSpace(body))
	case resp.StatusCode >= 500:
		return models.Workout{}, true, fmt.Errorf("submit failed (status %d): %s", resp.StatusCode, body)
	}
	return models.Workout{}, false, fmt.Errorf("submit failed (status %d): %s", resp.StatusCode, body)
}
