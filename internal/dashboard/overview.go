// Package dashboard aggregates the coordination overview shown after login.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"organlink/internal/utils"
	"organlink/pkg/types"

	"golang.org/x/sync/errgroup"
)

const activeMatchLimit = 8

type UserCounter interface {
	CountByRole(ctx context.Context, role types.Role) (int, error)
}

type OrganRequestReader interface {
	CountByStatus(ctx context.Context, status types.OrganRequestStatus) (int, error)
	ActiveMatches(ctx context.Context, limit uint64) ([]*types.OrganRequest, error)
	DailyActiveCounts(ctx context.Context, since time.Time) (map[string]int, error)
}

type TransportReader interface {
	Latest(ctx context.Context, limit uint64) ([]*types.Transport, error)
}

type Service struct {
	users      UserCounter
	requests   OrganRequestReader
	transports TransportReader
	now        func() time.Time
}

func NewService(users UserCounter, requests OrganRequestReader, transports TransportReader) *Service {
	return &Service{
		users:      users,
		requests:   requests,
		transports: transports,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Overview(ctx context.Context) (*types.Overview, error) {
	now := s.now()

	var (
		donors, recipients   int
		inTransit, delivered int
		matches              []*types.OrganRequest
		latest               []*types.Transport
		counts               map[string]int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		donors, err = s.users.CountByRole(ctx, types.RoleDonor)
		return err
	})
	g.Go(func() (err error) {
		recipients, err = s.users.CountByRole(ctx, types.RoleRecipient)
		return err
	})
	g.Go(func() (err error) {
		inTransit, err = s.requests.CountByStatus(ctx, types.OrganRequestStatusInTransit)
		return err
	})
	g.Go(func() (err error) {
		delivered, err = s.requests.CountByStatus(ctx, types.OrganRequestStatusDelivered)
		return err
	})
	g.Go(func() (err error) {
		matches, err = s.requests.ActiveMatches(ctx, activeMatchLimit)
		return err
	})
	g.Go(func() (err error) {
		latest, err = s.transports.Latest(ctx, 1)
		return err
	})
	g.Go(func() (err error) {
		counts, err = s.requests.DailyActiveCounts(ctx, TrendStart(now))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build overview: %w", err)
	}

	var transport *types.Transport
	if len(latest) > 0 {
		transport = latest[0]
	}
	summary := summarizeTransport(transport, now)

	return &types.Overview{
		Stats:         buildStats(donors, recipients, inTransit, delivered),
		ActiveMatches: buildMatches(matches),
		Transports:    []types.TransportSummary{summary},
		Timeline:      summary.Timeline,
		Trend:         BuildTrend(now, counts),
	}, nil
}

func buildStats(donors, recipients, inTransit, delivered int) []types.Stat {
	return []types.Stat{
		{Key: "donors", Value: donors, Change: "+8% vs last week"},
		{Key: "recipients", Value: recipients, Change: "-3% vs last week"},
		{Key: "inTransit", Value: inTransit, Change: "+2 ongoing"},
		{Key: "successRate", Value: SuccessRate(delivered, recipients), Change: "+4% vs last week"},
	}
}

// SuccessRate is delivered requests over registered recipients as a rounded percentage.
func SuccessRate(delivered, recipients int) string {
	if recipients <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(float64(delivered)/float64(recipients)*100)))
}

func buildMatches(requests []*types.OrganRequest) []types.ActiveMatch {
	matches := make([]types.ActiveMatch, 0, len(requests))
	for _, req := range requests {
		match := types.ActiveMatch{
			ID:            req.ID,
			DonorName:     "Pending assignment",
			RecipientName: "Unknown",
			OrganType:     req.OrganType,
			Hospital:      utils.PtrStringOr(req.Hospital, "Not set"),
			Status:        req.Status,
			UpdatedAt:     req.UpdatedAt,
		}
		if req.Donor != nil {
			match.DonorID = &req.Donor.ID
			match.DonorName = req.Donor.Name
		}
		if req.Recipient != nil {
			match.RecipientID = &req.Recipient.ID
			match.RecipientName = req.Recipient.Name
		}
		matches = append(matches, match)
	}
	return matches
}

func summarizeTransport(t *types.Transport, now time.Time) types.TransportSummary {
	if t == nil {
		return types.TransportSummary{
			Courier:         "Unknown",
			ETA:             "45 mins",
			CurrentLocation: types.DefaultLocation,
			Route:           []types.Waypoint{},
			Hospital:        &types.TransportHospital{Name: "Awaiting assignment"},
			Timeline:        fallbackTimeline(now),
		}
	}

	summary := types.TransportSummary{
		Courier:         utils.PtrStringOr(t.Courier, "Specialist Courier"),
		ETA:             utils.PtrStringOr(t.ETA, "45 mins"),
		CurrentLocation: types.DefaultLocation,
		Route:           t.Route,
		Hospital:        t.Hospital,
		Timeline:        t.Timeline,
	}
	if t.CurrentLocation != nil {
		summary.CurrentLocation = *t.CurrentLocation
	}
	if summary.Route == nil {
		summary.Route = []types.Waypoint{}
	}
	if summary.Hospital == nil {
		summary.Hospital = &types.TransportHospital{Name: "Recipient hospital"}
	}
	if len(summary.Timeline) == 0 {
		summary.Timeline = fallbackTimeline(now)
	}
	return summary
}

func fallbackTimeline(now time.Time) []types.TimelineEvent {
	return []types.TimelineEvent{
		{
			Title:       "Organ recovered",
			Status:      string(types.OrganRequestStatusApproved),
			Description: "Donor organ preserved and sealed at source hospital",
			Timestamp:   now.Add(-3 * time.Hour),
		},
		{
			Title:       "Courier dispatched",
			Status:      string(types.OrganRequestStatusInTransit),
			Description: "Specialized courier departed via air transport",
			Timestamp:   now.Add(-2 * time.Hour),
		},
		{
			Title:       "ETA updated",
			Status:      string(types.OrganRequestStatusInTransit),
			Description: "Weather clearance confirmed, arrival window unchanged",
			Timestamp:   now.Add(-30 * time.Minute),
		},
	}
}
