package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/logging/domain/entities/actionlog"
	"github.com/crewplane/crewplane/modules/logging/services"
	projectservices "github.com/crewplane/crewplane/modules/projects/services"
	schedulingservices "github.com/crewplane/crewplane/modules/scheduling/services"
	staffingservices "github.com/crewplane/crewplane/modules/staffing/services"
	"github.com/crewplane/crewplane/pkg/application"
	"github.com/crewplane/crewplane/pkg/composables"
)

type actionLogWriter interface {
	CreateActionLog(ctx context.Context, log *actionlog.ActionLog) error
}

// DomainEventsHandler journals domain state changes after the fact. A
// failed journal write is logged and dropped; it never affects the
// operation that raised the event.
type DomainEventsHandler struct {
	app     application.Application
	service actionLogWriter
	logger  *logrus.Logger
}

func NewDomainEventsHandler(app application.Application, service actionLogWriter) *DomainEventsHandler {
	return &DomainEventsHandler{
		app:     app,
		service: service,
		logger:  app.Logger(),
	}
}

func RegisterDomainEventHandlers(app application.Application) {
	handler := NewDomainEventsHandler(app, app.Service(services.LogsService{}).(*services.LogsService))
	bus := app.EventPublisher()
	bus.Subscribe(handler.onWbsTransitioned)
	bus.Subscribe(handler.onRequestApproved)
	bus.Subscribe(handler.onRequestRejected)
	bus.Subscribe(handler.onAssignmentCreated)
	bus.Subscribe(handler.onAssignmentEnded)
	bus.Subscribe(handler.onBookingReserved)
	bus.Subscribe(handler.onBookingStatusChanged)
	bus.Subscribe(handler.onSoftDeleted)
	bus.Subscribe(handler.onRestored)
	bus.Subscribe(handler.onHardDeleted)
}

func (h *DomainEventsHandler) onWbsTransitioned(event projectservices.WbsTransitionedEvent) {
	detail := fmt.Sprintf("%s -> %s", event.From, event.To)
	if event.Notes != "" {
		detail = fmt.Sprintf("%s: %s", detail, event.Notes)
	}
	h.record(event.Element.TenantID(), actionlog.New(
		event.Element.TenantID(), ref(event.ByUserID),
		actionlog.ActionWbsTransitioned, "wbs_element", event.Element.ID(), detail,
	))
}

func (h *DomainEventsHandler) onRequestApproved(event staffingservices.AssignmentRequestApprovedEvent) {
	h.record(event.Request.TenantID(), actionlog.New(
		event.Request.TenantID(), ref(event.ApprovedBy),
		actionlog.ActionRequestApproved, "assignment_request", event.Request.ID(), "",
	))
}

func (h *DomainEventsHandler) onRequestRejected(event staffingservices.AssignmentRequestRejectedEvent) {
	h.record(event.Request.TenantID(), actionlog.New(
		event.Request.TenantID(), ref(event.RejectedBy),
		actionlog.ActionRequestRejected, "assignment_request", event.Request.ID(), event.Reason,
	))
}

func (h *DomainEventsHandler) onAssignmentCreated(event staffingservices.AssignmentCreatedEvent) {
	a := event.Assignment
	h.record(a.TenantID(), actionlog.New(
		a.TenantID(), nil,
		actionlog.ActionAssignmentCreated, "assignment", a.ID(),
		fmt.Sprintf("person %s at %d%%", a.PersonID(), a.AllocationPct()),
	))
}

func (h *DomainEventsHandler) onAssignmentEnded(event staffingservices.AssignmentEndedEvent) {
	h.record(event.Assignment.TenantID(), actionlog.New(
		event.Assignment.TenantID(), nil,
		actionlog.ActionAssignmentEnded, "assignment", event.Assignment.ID(), "",
	))
}

func (h *DomainEventsHandler) onBookingReserved(event schedulingservices.BookingReservedEvent) {
	b := event.Booking
	h.record(b.TenantID(), actionlog.New(
		b.TenantID(), nil,
		actionlog.ActionBookingReserved, "booking", b.ID(),
		fmt.Sprintf("space %s", b.SpaceID()),
	))
}

func (h *DomainEventsHandler) onBookingStatusChanged(event schedulingservices.BookingStatusChangedEvent) {
	h.record(event.Booking.TenantID(), actionlog.New(
		event.Booking.TenantID(), nil,
		actionlog.ActionBookingChanged, "booking", event.Booking.ID(), string(event.Event),
	))
}

func (h *DomainEventsHandler) onSoftDeleted(event lifecycle.SoftDeletedEvent) {
	h.record(event.TenantID, actionlog.New(
		event.TenantID, ref(event.ByUserID),
		actionlog.ActionSoftDeleted, event.EntityType, event.EntityID, event.Reason,
	))
}

func (h *DomainEventsHandler) onRestored(event lifecycle.RestoredEvent) {
	h.record(event.TenantID, actionlog.New(
		event.TenantID, ref(event.ByUserID),
		actionlog.ActionRestored, event.EntityType, event.EntityID, "",
	))
}

func (h *DomainEventsHandler) onHardDeleted(event lifecycle.HardDeletedEvent) {
	h.record(event.TenantID, actionlog.New(
		event.TenantID, ref(event.ByUserID),
		actionlog.ActionHardDeleted, event.EntityType, event.EntityID,
		fmt.Sprintf("archive %s", event.ArchiveID),
	))
}

func (h *DomainEventsHandler) record(tenantID uuid.UUID, log *actionlog.ActionLog) {
	if h.service == nil || h.app == nil {
		return
	}

	ctx := composables.WithPool(context.Background(), h.app.DB())
	ctx = composables.WithTenantID(ctx, tenantID)

	if err := h.service.CreateActionLog(ctx, log); err != nil {
		if h.logger != nil {
			h.logger.WithError(err).
				WithField("action", log.Action).
				WithField("entity_id", log.EntityID).
				Warn("failed to persist action log")
		}
	}
}

func ref(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
