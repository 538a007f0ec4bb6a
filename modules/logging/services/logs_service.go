package services

import (
	"context"

	"github.com/crewplane/crewplane/modules/logging/domain/entities/actionlog"
	"github.com/crewplane/crewplane/pkg/composables"
)

type LogsService struct {
	actionLogs actionlog.Repository
}

func NewLogsService(actionLogs actionlog.Repository) *LogsService {
	return &LogsService{actionLogs: actionLogs}
}

func (s *LogsService) CreateActionLog(ctx context.Context, log *actionlog.ActionLog) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.actionLogs.Create(txCtx, log)
	})
}

func (s *LogsService) ListActionLogs(ctx context.Context, params *actionlog.FindParams) ([]*actionlog.ActionLog, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]*actionlog.ActionLog, error) {
		return s.actionLogs.List(txCtx, params)
	})
}

func (s *LogsService) CountActionLogs(ctx context.Context, params *actionlog.FindParams) (int64, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (int64, error) {
		return s.actionLogs.Count(txCtx, params)
	})
}
