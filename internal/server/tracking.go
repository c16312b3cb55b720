package server

import (
	"fmt"
	"net/http"
	"time"

	"organlink/internal/utils"
	"organlink/pkg/types"
)

const shipmentLimit = 6

func (s *Service) handleGetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.dashboard.Overview(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, overview)
}

func (s *Service) handleGetShipments(w http.ResponseWriter, r *http.Request) {
	transports, err := s.transports.Latest(r.Context(), shipmentLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if len(transports) == 0 {
		s.writeJSON(w, http.StatusOK, []*types.Transport{demoShipment(time.Now().UTC())})
		return
	}

	shipments := make([]*types.Transport, 0, len(transports))
	for _, t := range transports {
		shipments = append(shipments, shipmentView(t))
	}

	s.writeJSON(w, http.StatusOK, shipments)
}

// shipmentView fills the organ type and timeline ids a client relies on.
func shipmentView(t *types.Transport) *types.Transport {
	out := *t
	out.OrganType = utils.StringPtr(utils.PtrStringOr(t.OrganType, "Organ"))

	out.Timeline = make([]types.TimelineEvent, len(t.Timeline))
	for i, event := range t.Timeline {
		if event.ID == "" {
			event.ID = fmt.Sprintf("%s-%d", t.ID, i)
		}
		out.Timeline[i] = event
	}
	if out.Route == nil {
		out.Route = []types.Waypoint{}
	}

	return &out
}

func demoShipment(now time.Time) *types.Transport {
	return &types.Transport{
		ID:              "demo-1",
		OrganType:       utils.StringPtr("Heart"),
		Courier:         utils.StringPtr("SkyBridge Medical"),
		ETA:             utils.StringPtr("42 mins"),
		CurrentLocation: &types.Coordinates{Lat: 40.7128, Lng: -74.006},
		Hospital: &types.TransportHospital{
			Name:        "Mount Sinai Hospital",
			Coordinates: &types.Coordinates{Lat: 40.7901, Lng: -73.9533},
		},
		Route: []types.Waypoint{
			{Lat: 40.6413, Lng: -73.7781},
			{Lat: 40.6782, Lng: -73.9442},
			{Lat: 40.7128, Lng: -74.006},
		},
		Timeline: []types.TimelineEvent{
			{
				ID:          "tl-1",
				Title:       "Organ recovered",
				Description: "Donor procedure completed at Mercy General",
				Status:      string(types.OrganRequestStatusApproved),
				Timestamp:   now.Add(-3 * time.Hour),
			},
			{
				ID:          "tl-2",
				Title:       "Courier departed",
				Description: "Air ambulance enroute to recipient city",
				Status:      string(types.OrganRequestStatusInTransit),
				Timestamp:   now.Add(-110 * time.Minute),
			},
			{
				ID:          "tl-3",
				Title:       "Traffic advisory",
				Description: "Surface route optimized with hospital security escort",
				Status:      string(types.OrganRequestStatusInTransit),
				Timestamp:   now.Add(-25 * time.Minute),
			},
		},
	}
}
