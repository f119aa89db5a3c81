package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrCalendarAuth marks calendar failures caused by broken authorization
// (revoked refresh token, wrong credentials). Callers apologize differently
// for these than for transient failures.
var ErrCalendarAuth = errors.New("calendar authorization failed")

// BusyInterval is an occupied span on the clinic calendar, in UTC.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// EventRequest describes a calendar event to create.
type EventRequest struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Calendar is the port to the external calendar. Authorization failures must
// be distinguishable (errors.Is against ErrCalendarAuth).
type Calendar interface {
	QueryBusy(ctx context.Context, timeMin, timeMax time.Time) ([]BusyInterval, error)
	InsertEvent(ctx context.Context, req EventRequest) (string, error)
}

// GoogleCalendarService implements Calendar on the Google Calendar API using
// an OAuth2 refresh token.
type GoogleCalendarService struct {
	svc        *calendar.Service
	calendarID string
	timezone   string
}

// NewGoogleCalendarService builds the Google Calendar client from environment
// credentials (GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REFRESH_TOKEN).
func NewGoogleCalendarService(ctx context.Context, calendarID, timezone string) (*GoogleCalendarService, error) {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	refreshToken := os.Getenv("GOOGLE_REFRESH_TOKEN")
	redirectURI := os.Getenv("GOOGLE_REDIRECT_URI")
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/oauth2callback"
	}

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("missing Google Calendar credentials in environment variables")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	svc, err := calendar.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	return &GoogleCalendarService{
		svc:        svc,
		calendarID: calendarID,
		timezone:   timezone,
	}, nil
}

// QueryBusy lists concrete events overlapping [timeMin, timeMax) and returns
// their spans. Listing events rather than using the freebusy endpoint keeps
// every overlapping block visible, including back-to-back and stacked events.
func (g *GoogleCalendarService) QueryBusy(ctx context.Context, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	res, err := g.svc.Events.List(g.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyCalendarError("query busy intervals", err)
	}

	var busy []BusyInterval
	for _, ev := range res.Items {
		if ev.Status == "cancelled" || ev.Transparency == "transparent" {
			continue
		}
		// All-day events carry Date instead of DateTime; they do not block
		// specific slots here.
		if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" || ev.End.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
		if err != nil {
			log.Printf("⚠️  Skipping event %s with unparseable start %q", ev.Id, ev.Start.DateTime)
			continue
		}
		end, err := time.Parse(time.RFC3339, ev.End.DateTime)
		if err != nil {
			log.Printf("⚠️  Skipping event %s with unparseable end %q", ev.Id, ev.End.DateTime)
			continue
		}
		busy = append(busy, BusyInterval{Start: start.UTC(), End: end.UTC()})
	}

	return busy, nil
}

// InsertEvent creates the appointment event and returns its id.
func (g *GoogleCalendarService) InsertEvent(ctx context.Context, req EventRequest) (string, error) {
	event := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: g.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: req.End.Format(time.RFC3339),
			TimeZone: g.timezone,
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", classifyCalendarError("insert event", err)
	}

	log.Printf("✅ Calendar event created: %s", created.Id)
	return created.Id, nil
}

// classifyCalendarError folds authorization failures into ErrCalendarAuth and
// leaves everything else as a transient error.
func classifyCalendarError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		return fmt.Errorf("%s: %v: %w", op, err, ErrCalendarAuth)
	}
	if strings.Contains(err.Error(), "invalid_grant") {
		return fmt.Errorf("%s: %v: %w", op, err, ErrCalendarAuth)
	}
	return fmt.Errorf("%s: %w", op, err)
}
