package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"organlink/internal/utils"
	"organlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTrendReturnsSevenAscendingDays(t *testing.T) {
	now := time.Date(2024, 3, 3, 23, 59, 0, 0, time.UTC)

	points := BuildTrend(now, map[string]int{
		"2024-02-26": 2,
		"2024-03-03": 5,
		"2024-02-20": 99, // outside the window
	})

	require.Len(t, points, TrendDays)
	assert.Equal(t, types.TrendPoint{Label: "26 Feb", Date: "2024-02-26", Value: 2}, points[0])
	assert.Equal(t, types.TrendPoint{Label: "03 Mar", Date: "2024-03-03", Value: 5}, points[6])
	for i := 1; i < len(points); i++ {
		assert.Less(t, points[i-1].Date, points[i].Date)
	}
	assert.Equal(t, 0, points[3].Value)
}

func TestBuildTrendEmptyCounts(t *testing.T) {
	points := BuildTrend(time.Now(), nil)

	require.Len(t, points, TrendDays)
	for _, p := range points {
		assert.Equal(t, 0, p.Value)
	}
}

func TestBuildTrendUsesUTCDay(t *testing.T) {
	// 01:30 on the 1st in UTC+5 is still the 29th of February in UTC
	loc := time.FixedZone("UTC+5", 5*60*60)
	now := time.Date(2024, 3, 1, 1, 30, 0, 0, loc)

	points := BuildTrend(now, nil)
	assert.Equal(t, "2024-02-29", points[6].Date)
	assert.Equal(t, "2024-02-23", points[0].Date)
	assert.Equal(t, time.Date(2024, 2, 23, 0, 0, 0, 0, time.UTC), TrendStart(now))
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, "0%", SuccessRate(3, 0))
	assert.Equal(t, "33%", SuccessRate(1, 3))
	assert.Equal(t, "67%", SuccessRate(2, 3))
	assert.Equal(t, "100%", SuccessRate(4, 4))
}

type fakeUsers struct{ counts map[types.Role]int }

func (f *fakeUsers) CountByRole(ctx context.Context, role types.Role) (int, error) {
	return f.counts[role], nil
}

type fakeRequests struct {
	counts  map[types.OrganRequestStatus]int
	matches []*types.OrganRequest
	daily   map[string]int
	since   time.Time
	err     error
}

func (f *fakeRequests) CountByStatus(ctx context.Context, status types.OrganRequestStatus) (int, error) {
	return f.counts[status], nil
}

func (f *fakeRequests) ActiveMatches(ctx context.Context, limit uint64) ([]*types.OrganRequest, error) {
	return f.matches, f.err
}

func (f *fakeRequests) DailyActiveCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	f.since = since
	return f.daily, nil
}

type fakeTransports struct{ transports []*types.Transport }

func (f *fakeTransports) Latest(ctx context.Context, limit uint64) ([]*types.Transport, error) {
	return f.transports, nil
}

func TestOverviewWithoutTransport(t *testing.T) {
	now := time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)
	requests := &fakeRequests{
		counts: map[types.OrganRequestStatus]int{
			types.OrganRequestStatusInTransit: 2,
			types.OrganRequestStatusDelivered: 1,
		},
		matches: []*types.OrganRequest{{
			ID:        "req-1",
			OrganType: "Kidney",
			Status:    types.OrganRequestStatusApproved,
			Recipient: &types.User{ID: "u-2", Name: "Rahul"},
		}},
		daily: map[string]int{"2024-03-02": 4},
	}
	svc := NewService(
		&fakeUsers{counts: map[types.Role]int{types.RoleDonor: 5, types.RoleRecipient: 2}},
		requests,
		&fakeTransports{},
	)
	svc.now = func() time.Time { return now }

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)

	require.Len(t, overview.Stats, 4)
	assert.Equal(t, 5, overview.Stats[0].Value)
	assert.Equal(t, 2, overview.Stats[1].Value)
	assert.Equal(t, 2, overview.Stats[2].Value)
	assert.Equal(t, "50%", overview.Stats[3].Value)
	assert.Equal(t, "+4% vs last week", overview.Stats[3].Change)

	require.Len(t, overview.ActiveMatches, 1)
	match := overview.ActiveMatches[0]
	assert.Equal(t, "Pending assignment", match.DonorName)
	assert.Nil(t, match.DonorID)
	assert.Equal(t, "Rahul", match.RecipientName)
	assert.Equal(t, "Not set", match.Hospital)

	require.Len(t, overview.Transports, 1)
	assert.Equal(t, "Unknown", overview.Transports[0].Courier)
	assert.Equal(t, types.DefaultLocation, overview.Transports[0].CurrentLocation)
	assert.Equal(t, "Awaiting assignment", overview.Transports[0].Hospital.Name)
	require.Len(t, overview.Timeline, 3)
	assert.Equal(t, "Organ recovered", overview.Timeline[0].Title)

	require.Len(t, overview.Trend, 7)
	assert.Equal(t, 4, overview.Trend[5].Value)
	assert.Equal(t, TrendStart(now), requests.since)
}

func TestOverviewUsesLatestTransport(t *testing.T) {
	events := []types.TimelineEvent{{Title: "Landed", Status: "in_transit"}}
	svc := NewService(
		&fakeUsers{},
		&fakeRequests{},
		&fakeTransports{transports: []*types.Transport{{
			Courier:         utils.StringPtr("SkyBridge Medical"),
			CurrentLocation: &types.Coordinates{Lat: 40.7128, Lng: -74.006},
			Timeline:        events,
		}}},
	)

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)

	summary := overview.Transports[0]
	assert.Equal(t, "SkyBridge Medical", summary.Courier)
	assert.Equal(t, "45 mins", summary.ETA)
	assert.Equal(t, -74.006, summary.CurrentLocation.Lng)
	assert.Equal(t, "Recipient hospital", summary.Hospital.Name)
	assert.Equal(t, events, summary.Timeline)
	assert.Equal(t, events, overview.Timeline)
	assert.Equal(t, "0%", overview.Stats[3].Value)
}

func TestOverviewPropagatesStoreError(t *testing.T) {
	svc := NewService(&fakeUsers{}, &fakeRequests{err: errors.New("db down")}, &fakeTransports{})

	_, err := svc.Overview(context.Background())
	assert.ErrorContains(t, err, "db down")
}
