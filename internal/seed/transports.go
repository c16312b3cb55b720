package seed

import (
	"context"
	"fmt"
	"time"

	"organlink/internal/utils"
	"organlink/pkg/types"

	"github.com/sirupsen/logrus"
)

type OrganRequestStore interface {
	Create(ctx context.Context, request *types.OrganRequest) (*types.Approval, error)
	UpdateStatus(ctx context.Context, id string, status types.OrganRequestStatus) (*types.OrganRequest, error)
}

type TransportStore interface {
	Create(ctx context.Context, transport *types.Transport) error
}

// SeedDemoShipment creates an in transit kidney request for the seeded
// recipient and a transport tracking it.
func SeedDemoShipment(ctx context.Context, requests OrganRequestStore, transports TransportStore, users map[types.Role]*types.User, logger *logrus.Logger) error {
	recipient, doctor := users[types.RoleRecipient], users[types.RoleDoctor]
	if recipient == nil || doctor == nil {
		return fmt.Errorf("demo shipment needs a seeded recipient and doctor")
	}

	request := &types.OrganRequest{
		OrganType:   "Kidney",
		Urgency:     8,
		Hospital:    utils.StringPtr("City Hospital"),
		RecipientID: recipient.ID,
		RequestedBy: doctor.ID,
		Recipient:   recipient,
		Requester:   doctor,
	}
	if _, err := requests.Create(ctx, request); err != nil {
		return fmt.Errorf("failed to create demo organ request: %w", err)
	}
	if _, err := requests.UpdateStatus(ctx, request.ID, types.OrganRequestStatusInTransit); err != nil {
		return fmt.Errorf("failed to move demo organ request in transit: %w", err)
	}

	now := time.Now().UTC()
	transport := &types.Transport{
		OrganRequestID:  request.ID,
		OrganType:       utils.StringPtr(request.OrganType),
		Courier:         utils.StringPtr("Cascade Air Medical"),
		ETA:             utils.StringPtr("1 hr 10 mins"),
		CurrentLocation: &types.Coordinates{Lat: 46.1879, Lng: -123.8313},
		Hospital: &types.TransportHospital{
			Name:        "City Hospital",
			Coordinates: &types.Coordinates{Lat: 45.5152, Lng: -122.6784},
		},
		Route: []types.Waypoint{
			{Lat: 47.6062, Lng: -122.3321, Timestamp: utils.TimePtr(now.Add(-90 * time.Minute))},
			{Lat: 46.1879, Lng: -123.8313, Timestamp: utils.TimePtr(now.Add(-20 * time.Minute))},
		},
		Timeline: []types.TimelineEvent{
			{Title: "Organ recovered", Description: "Procedure completed in Seattle", Status: string(types.OrganRequestStatusApproved), Timestamp: now.Add(-2 * time.Hour)},
			{Title: "Courier departed", Description: "Air transfer to Portland", Status: string(types.OrganRequestStatusInTransit), Timestamp: now.Add(-90 * time.Minute)},
		},
	}
	if err := transports.Create(ctx, transport); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"organ_request_id": request.ID,
		"transport_id":     transport.ID,
	}).Info("seeded demo shipment")
	return nil
}
