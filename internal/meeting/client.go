package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const meetingDurationMinutes = 60

// TokenSource supplies bearer tokens for the meetings API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config configures the meetings API client.
type Config struct {
	BaseURL  string // e.g. https://api.zoom.us/v2
	Password string // static passcode applied to every meeting
	Timeout  time.Duration
}

// Client creates and deletes scheduled video meetings.
type Client struct {
	baseURL    string
	password   string
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
}

// MeetingRequest describes the meeting to schedule.
type MeetingRequest struct {
	Topic     string
	Agenda    string
	Invitee   string
	StartTime time.Time
	Timezone  string
}

// Meeting holds the join credentials returned by the provider.
type Meeting struct {
	ID        string    `json:"id"`
	JoinURL   string    `json:"joinUrl"`
	Password  string    `json:"password"`
	StartTime time.Time `json:"startTime"`
}

// NewClient builds a meetings client.
func NewClient(cfg Config, tokens TokenSource) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("meeting: base url is required")
	}
	if tokens == nil {
		return nil, errors.New("meeting: token source is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		password:   cfg.Password,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}, nil
}

type createMeetingBody struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Timezone  string          `json:"timezone,omitempty"`
	Duration  int             `json:"duration"`
	Password  string          `json:"password,omitempty"`
	Agenda    string          `json:"agenda,omitempty"`
	Settings  meetingSettings `json:"settings"`
}

type meetingSettings struct {
	JoinBeforeHost  bool             `json:"join_before_host"`
	WaitingRoom     bool             `json:"waiting_room"`
	AutoRecording   string           `json:"auto_recording"`
	EncryptionType  string           `json:"encryption_type"`
	MeetingInvitees []meetingInvitee `json:"meeting_invitees,omitempty"`
}

type meetingInvitee struct {
	Email string `json:"email"`
}

type meetingResponse struct {
	ID        int64  `json:"id"`
	JoinURL   string `json:"join_url"`
	Password  string `json:"password"`
	StartTime string `json:"start_time"`
}

// CreateMeeting schedules a 60 minute meeting with the fixed settings bundle
// and returns its credentials.
func (c *Client) CreateMeeting(ctx context.Context, req MeetingRequest) (*Meeting, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "meeting.create")
	defer span.End()
	span.SetAttributes(attribute.String("meeting.start_time", req.StartTime.UTC().Format(time.RFC3339)))

	token, err := c.tokens.Token(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	body := createMeetingBody{
		Topic:     req.Topic,
		Type:      2,
		StartTime: req.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
		Timezone:  req.Timezone,
		Duration:  meetingDurationMinutes,
		Password:  c.password,
		Agenda:    req.Agenda,
		Settings: meetingSettings{
			JoinBeforeHost: true,
			WaitingRoom:    false,
			AutoRecording:  "cloud",
			EncryptionType: "enhanced_encryption",
		},
	}
	if req.Invitee != "" {
		body.Settings.MeetingInvitees = []meetingInvitee{{Email: req.Invitee}}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("meeting: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/me/meetings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("meeting: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
			inv.Invalidate()
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProvisionFailed, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed meetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProvisionFailed, err)
	}
	if parsed.ID == 0 {
		return nil, fmt.Errorf("%w: response missing meeting id", ErrProvisionFailed)
	}

	m := &Meeting{
		ID:        strconv.FormatInt(parsed.ID, 10),
		JoinURL:   parsed.JoinURL,
		Password:  parsed.Password,
		StartTime: req.StartTime,
	}
	if t, err := time.Parse(time.RFC3339, parsed.StartTime); err == nil {
		m.StartTime = t
	}
	span.SetAttributes(attribute.String("meeting.id", m.ID))
	return m, nil
}

// DeleteMeeting removes a meeting. A meeting that no longer exists is not an
// error.
func (c *Client) DeleteMeeting(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "meeting.delete")
	defer span.End()
	span.SetAttributes(attribute.String("meeting.id", id))

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/meetings/"+id, nil)
	if err != nil {
		return fmt.Errorf("meeting: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("meeting: delete %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("meeting: delete %s: status %d: %s", id, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
