package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"scheduling-engine/core/config"
	"scheduling-engine/core/database"
	"scheduling-engine/core/errors"
	"scheduling-engine/core/logger"
	"scheduling-engine/core/timemath"
	bookingEntity "scheduling-engine/modules/booking/entity"
	"scheduling-engine/modules/calendar/entity"
	"scheduling-engine/modules/calendar/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const primaryCalendar = "primary"

// Calendar is the external calendar the booking flow reads busy time from and
// writes confirmed bookings to.
type Calendar interface {
	GetBusyIntervals(ctx context.Context, hostID uuid.UUID, start, end time.Time) ([]timemath.Interval, error)
	CreateEvent(ctx context.Context, hostID uuid.UUID, b *bookingEntity.Booking) (string, error)
	DeleteEvent(ctx context.Context, hostID uuid.UUID, externalID string) error
}

func NewOAuthConfig(cfg config.GoogleAPIConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

// GoogleCalendar talks to Google Calendar v3 with the host's stored OAuth
// tokens. Hosts without a connection have no busy time and get no events.
type GoogleCalendar struct {
	repo     repository.CalendarRepository
	oauth    *oauth2.Config
	endpoint string
}

func NewGoogleCalendar(repo repository.CalendarRepository, oauthCfg *oauth2.Config) *GoogleCalendar {
	return &GoogleCalendar{repo: repo, oauth: oauthCfg}
}

type session struct {
	conn   *entity.CalendarConnection
	source oauth2.TokenSource
	api    *calendar.Service
}

func (g *GoogleCalendar) open(ctx context.Context, hostID uuid.UUID) (*session, error) {
	conn, err := g.repo.GetActiveConnection(ctx, hostID, entity.ProviderGoogle)
	if err != nil {
		if stderrors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	source := g.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		Expiry:       conn.TokenExpiresAt,
		TokenType:    "Bearer",
	})
	api, err := newAPI(ctx, oauth2.NewClient(ctx, source), g.endpoint)
	if err != nil {
		return nil, err
	}
	return &session{conn: conn, source: source, api: api}, nil
}

func newAPI(ctx context.Context, client *http.Client, endpoint string) (*calendar.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// persist stores a token the source refreshed during the call.
func (g *GoogleCalendar) persist(ctx context.Context, s *session) {
	tok, err := s.source.Token()
	if err != nil || tok.AccessToken == s.conn.AccessToken {
		return
	}
	s.conn.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.conn.RefreshToken = tok.RefreshToken
	}
	s.conn.TokenExpiresAt = tok.Expiry
	if err := g.repo.UpdateTokens(ctx, s.conn); err != nil {
		logger.Warn("GoogleCalendar:Persist:Error", "user_id", s.conn.UserID, "error", err)
		return
	}
	logger.Info("GoogleCalendar:Persist:TokenRefreshed", "user_id", s.conn.UserID)
}

func upstream(op string, err error) error {
	return errors.NewAppError(errors.ErrUpstreamUnavailable, "google calendar "+op+" failed", err)
}

func (g *GoogleCalendar) GetBusyIntervals(ctx context.Context, hostID uuid.UUID, start, end time.Time) ([]timemath.Interval, error) {
	s, err := g.open(ctx, hostID)
	if err != nil || s == nil {
		return nil, err
	}
	defer g.persist(ctx, s)

	resp, err := s.api.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: primaryCalendar}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, upstream("freebusy", err)
	}

	cal, ok := resp.Calendars[primaryCalendar]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		return nil, upstream("freebusy", fmt.Errorf("calendar error: %s", cal.Errors[0].Reason))
	}
	busy := make([]timemath.Interval, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		from, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			continue
		}
		to, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			continue
		}
		busy = append(busy, timemath.Interval{Start: from.UTC(), End: to.UTC()})
	}
	return busy, nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, hostID uuid.UUID, b *bookingEntity.Booking) (string, error) {
	s, err := g.open(ctx, hostID)
	if err != nil || s == nil {
		return "", err
	}
	defer g.persist(ctx, s)

	event := &calendar.Event{
		Summary:     "Meeting with " + b.GuestName,
		Description: b.GuestNotes,
		Start:       &calendar.EventDateTime{DateTime: b.StartTime.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &calendar.EventDateTime{DateTime: b.EndTime.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		Attendees: []*calendar.EventAttendee{
			{Email: b.GuestEmail, DisplayName: b.GuestName},
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				"booking_id":      b.ID.String(),
				"booking_version": strconv.Itoa(b.Version),
			},
		},
	}
	created, err := s.api.Events.Insert(primaryCalendar, event).SendUpdates("none").Context(ctx).Do()
	if err != nil {
		return "", upstream("insert", err)
	}
	logger.Info("GoogleCalendar:CreateEvent:Success", "booking_id", b.ID, "event_id", created.Id)
	return created.Id, nil
}

// DeleteEvent treats an event that is already gone as deleted.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, hostID uuid.UUID, externalID string) error {
	s, err := g.open(ctx, hostID)
	if err != nil || s == nil {
		return err
	}
	defer g.persist(ctx, s)

	err = s.api.Events.Delete(primaryCalendar, externalID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if stderrors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}
		return upstream("delete", err)
	}
	logger.Info("GoogleCalendar:DeleteEvent:Success", "host_id", hostID, "event_id", externalID)
	return nil
}

// NoopCalendar is used when Google is not configured.
type NoopCalendar struct{}

func (NoopCalendar) GetBusyIntervals(context.Context, uuid.UUID, time.Time, time.Time) ([]timemath.Interval, error) {
	return nil, nil
}

func (NoopCalendar) CreateEvent(context.Context, uuid.UUID, *bookingEntity.Booking) (string, error) {
	return "", nil
}

func (NoopCalendar) DeleteEvent(context.Context, uuid.UUID, string) error {
	return nil
}
