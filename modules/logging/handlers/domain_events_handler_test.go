package handlers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/logging/domain/entities/actionlog"
	"github.com/crewplane/crewplane/modules/projects/domain/aggregates/wbselement"
	projectservices "github.com/crewplane/crewplane/modules/projects/services"
	"github.com/crewplane/crewplane/pkg/application"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type stubLogsService struct {
	created []*actionlog.ActionLog
}

func (s *stubLogsService) CreateActionLog(_ context.Context, log *actionlog.ActionLog) error {
	s.created = append(s.created, log)
	return nil
}

func TestDomainEventsHandler_JournalsWbsTransition(t *testing.T) {
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(nil),
	})

	stubSvc := &stubLogsService{}
	handler := NewDomainEventsHandler(app, stubSvc)
	app.EventPublisher().Subscribe(handler.onWbsTransitioned)

	tenantID := uuid.New()
	byUser := uuid.New()
	element := wbselement.New(tenantID, uuid.New(), "WBS-100", "Discovery")

	app.EventPublisher().Publish(projectservices.WbsTransitionedEvent{
		Element:  element,
		From:     wbselement.ApprovalDraft,
		To:       wbselement.ApprovalPending,
		ByUserID: byUser,
		Notes:    "ready for review",
	})

	require.Len(t, stubSvc.created, 1)
	entry := stubSvc.created[0]
	require.Equal(t, tenantID, entry.TenantID)
	require.Equal(t, actionlog.ActionWbsTransitioned, entry.Action)
	require.Equal(t, "wbs_element", entry.EntityType)
	require.Equal(t, element.ID(), entry.EntityID)
	require.NotNil(t, entry.UserID)
	require.Equal(t, byUser, *entry.UserID)
	require.Contains(t, entry.Detail, "ready for review")
}

func TestDomainEventsHandler_JournalsLifecycleEvents(t *testing.T) {
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(nil),
	})

	stubSvc := &stubLogsService{}
	handler := NewDomainEventsHandler(app, stubSvc)
	app.EventPublisher().Subscribe(handler.onSoftDeleted)
	app.EventPublisher().Subscribe(handler.onHardDeleted)

	tenantID := uuid.New()
	entityID := uuid.New()
	archiveID := uuid.New()

	app.EventPublisher().Publish(lifecycle.SoftDeletedEvent{
		TenantID:   tenantID,
		EntityType: "booking",
		EntityID:   entityID,
		ByUserID:   uuid.New(),
		Reason:     "created by mistake",
	})
	app.EventPublisher().Publish(lifecycle.HardDeletedEvent{
		TenantID:   tenantID,
		EntityType: "booking",
		EntityID:   entityID,
		ByUserID:   uuid.New(),
		ArchiveID:  archiveID,
	})

	require.Len(t, stubSvc.created, 2)
	require.Equal(t, actionlog.ActionSoftDeleted, stubSvc.created[0].Action)
	require.Equal(t, "created by mistake", stubSvc.created[0].Detail)
	require.Equal(t, actionlog.ActionHardDeleted, stubSvc.created[1].Action)
	require.Contains(t, stubSvc.created[1].Detail, archiveID.String())
}
