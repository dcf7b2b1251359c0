package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rubiojr/crmdesk/pkg/clock"
	"github.com/rubiojr/crmdesk/pkg/dates"
	"github.com/rubiojr/crmdesk/pkg/metrics"
	"github.com/rubiojr/crmdesk/pkg/repository"
	"github.com/rubiojr/crmdesk/pkg/sheet"
	"golang.org/x/text/cases"
)

// ErrNotFound is returned by GetTrip when no Trips row has the requested id.
var ErrNotFound = errors.New("trip not found")

// Placeholders shown to users for missing values.
const (
	DestinationNotSpecified = "не указано"
	DateNotSpecified        = "не указана"
)

const messageTemplate = "Номер заказа: %s\n" +
	"Фамилия: %s\n" +
	"Имя: %s\n" +
	"Направление: %s\n" +
	"Дата вылета: %s"

const generatedAtLayout = "2006-01-02T15:04:05Z"

// Repository is the subset of *repository.Repository the service reads from.
type Repository interface {
	LoadSheet(ctx context.Context, name string) (*sheet.Table, error)
	Timezone(ctx context.Context) (string, error)
}

// Options configures a Service.
type Options struct {
	// MaxResults caps the number of search results. Zero or less means
	// no cap.
	MaxResults int
	// Clock stamps generated_at on dossiers. Defaults to the real clock.
	Clock clock.Clock
}

// Service answers surname searches and trip lookups.
type Service struct {
	repo       Repository
	maxResults int
	clock      clock.Clock
}

// NewService creates a search service reading through repo.
//
// Parameters:
//   - repo: source of cached tables, usually a *repository.Repository
//   - opts: result cap and time source
func NewService(repo Repository, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Service{repo: repo, maxResults: opts.MaxResults, clock: opts.Clock}
}

// tripColumns are the Trips sheet columns both operations read.
type tripColumns struct {
	tripID, lastName, firstName, startDate, destination, total, currency int
}

func resolveTripColumns(t *sheet.Table) tripColumns {
	return tripColumns{
		tripID:      t.Column(sheet.TripIDColumn),
		lastName:    t.Column(sheet.LastNameColumn),
		firstName:   t.Column(sheet.FirstNameColumn),
		startDate:   t.Column(sheet.StartDateColumn),
		destination: t.Column(sheet.DestinationColumn),
		total:       t.Column(sheet.TotalColumn),
		currency:    t.Column(sheet.CurrencyColumn),
	}
}

// SearchBySurname scans the Trips sheet for rows whose last name equals
// surname, ignoring case and surrounding whitespace. Rows are returned in
// sheet order and the scan stops once MaxResults matches are collected.
//
// A missing destination is reported as DestinationNotSpecified in both the
// structured result and the text message. A missing start date is reported
// as DateNotSpecified in the text message only; the structured result
// carries "".
func (s *Service) SearchBySurname(ctx context.Context, surname string) (*SearchResponse, error) {
	defer observe("search", time.Now())

	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(surname))

	trips, err := s.repo.LoadSheet(ctx, repository.SheetTrips)
	if err != nil {
		return nil, err
	}
	tz, err := s.repo.Timezone(ctx)
	if err != nil {
		return nil, err
	}
	cols := resolveTripColumns(trips)

	resp := &SearchResponse{
		Status:       "ok",
		Results:      []SearchResult{},
		TextMessages: []string{},
	}
	for _, row := range trips.Rows {
		lastName := sheet.TextAt(row, cols.lastName)
		if fold.String(lastName) != query {
			continue
		}

		tripID := sheet.TextAt(row, cols.tripID)
		firstName := sheet.TextAt(row, cols.firstName)
		destination := sheet.TextAt(row, cols.destination)
		startDate := dates.Format(sheet.At(row, cols.startDate), tz)
		if destination == "" {
			destination = DestinationNotSpecified
		}
		if startDate == "" {
			startDate = DateNotSpecified
		}

		result := SearchResult{
			TripID:      tripID,
			LastName:    lastName,
			FirstName:   firstName,
			Destination: destination,
			StartDate:   startDate,
		}
		if result.StartDate == DateNotSpecified {
			result.StartDate = ""
		}
		resp.Results = append(resp.Results, result)
		resp.TextMessages = append(resp.TextMessages,
			fmt.Sprintf(messageTemplate, tripID, lastName, firstName, destination, startDate))

		if s.maxResults > 0 && len(resp.Results) >= s.maxResults {
			break
		}
	}
	resp.Count = len(resp.Results)
	return resp, nil
}

// GetTrip assembles the dossier for tripID by joining Trips, Profile and
// Contacts on the trip id. It fails with ErrNotFound when the Trips sheet
// has no such trip; no partial dossier is ever returned.
func (s *Service) GetTrip(ctx context.Context, tripID string) (*TripDossier, error) {
	defer observe("get_trip", time.Now())

	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		return nil, fmt.Errorf("%w: empty trip id", ErrNotFound)
	}

	tz, err := s.repo.Timezone(ctx)
	if err != nil {
		return nil, err
	}
	trips, err := s.repo.LoadSheet(ctx, repository.SheetTrips)
	if err != nil {
		return nil, err
	}
	profiles, err := s.repo.LoadSheet(ctx, repository.SheetProfile)
	if err != nil {
		return nil, err
	}
	contacts, err := s.repo.LoadSheet(ctx, repository.SheetContacts)
	if err != nil {
		return nil, err
	}

	cols := resolveTripColumns(trips)
	row, ok := findTripRow(trips, cols.tripID, tripID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tripID)
	}

	trip := TripRecord{
		TripID: sheet.TextAt(row, cols.tripID),
		MainTourist: Tourist{
			LastName:  sheet.TextAt(row, cols.lastName),
			FirstName: sheet.TextAt(row, cols.firstName),
		},
		Destination: sheet.TextAt(row, cols.destination),
		StartDate:   dates.Format(sheet.At(row, cols.startDate), tz),
		Passengers:  []string{},
		Total:       sheet.TextAt(row, cols.total),
		Currency:    sheet.TextAt(row, cols.currency),
	}

	clients := buildClients(profiles, contacts, tripID)

	perClient := make([]ClientPayment, len(clients))
	for i, c := range clients {
		perClient[i] = ClientPayment{ClientID: c.ClientID, Amount: c.Amount}
	}

	return &TripDossier{
		Meta: Meta{
			TripID:      tripID,
			GeneratedAt: s.clock.Now().UTC().Format(generatedAtLayout),
			Timezone:    tz,
		},
		Clients: clients,
		Trips:   []TripRecord{trip},
		Payments: Payments{
			Total:     trip.Total,
			Currency:  trip.Currency,
			PerClient: perClient,
		},
	}, nil
}

func findTripRow(t *sheet.Table, col int, tripID string) ([]sheet.Cell, bool) {
	for _, row := range t.Rows {
		if sheet.TextAt(row, col) == tripID {
			return row, true
		}
	}
	return nil, false
}

// buildClients returns every Profile row of the trip with its contacts
// attached. A Contacts row with an empty client id belongs to every client
// of the trip; a client without an id receives all of the trip's contacts.
func buildClients(profiles, contacts *sheet.Table, tripID string) []Client {
	profileTrip := profiles.Column(sheet.TripIDColumn)
	clientID := profiles.Column(sheet.ClientIDColumn)
	lastName := profiles.Column(sheet.LastNameColumn)
	firstName := profiles.Column(sheet.FirstNameColumn)
	amount := profiles.Column(sheet.AmountColumn)

	contactTrip := contacts.Column(sheet.TripIDColumn)
	contactClient := contacts.Column(sheet.ClientIDColumn)
	phone := contacts.Column(sheet.PhoneColumn)
	email := contacts.Column(sheet.EmailColumn)

	clients := []Client{}
	for _, row := range profiles.Rows {
		if sheet.TextAt(row, profileTrip) != tripID {
			continue
		}
		client := Client{
			ClientID:  sheet.TextAt(row, clientID),
			LastName:  sheet.TextAt(row, lastName),
			FirstName: sheet.TextAt(row, firstName),
			Amount:    sheet.TextAt(row, amount),
			Contacts:  []Contact{},
		}
		for _, c := range contacts.Rows {
			if sheet.TextAt(c, contactTrip) != tripID {
				continue
			}
			owner := sheet.TextAt(c, contactClient)
			if client.ClientID != "" && owner != "" && owner != client.ClientID {
				continue
			}
			client.Contacts = append(client.Contacts, Contact{
				Phone: sheet.TextAt(c, phone),
				Email: sheet.TextAt(c, email),
			})
		}
		clients = append(clients, client)
	}
	return clients
}

func observe(action string, start time.Time) {
	metrics.SearchDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}
