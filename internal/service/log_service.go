package service

import (
	"context"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/repository"
)

// LogService lists communication logs, newest first.
type LogService struct {
	LogRepo repository.CommunicationLogRepositoryInterface
}

func (s *LogService) List(ctx context.Context, campaignID int64, status model.LogStatus, page, pageSize int) ([]model.CommunicationLog, map[string]int, error) {
	if status != "" && !status.Valid() {
		return nil, nil, appErrors.NewValidation("status", "must be PENDING, SENT or FAILED")
	}
	window, page, pageSize := paginate(page, pageSize)

	logs, total, err := s.LogRepo.List(ctx, repository.LogFilter{CampaignID: campaignID, Status: status, Page: window})
	if err != nil {
		return nil, nil, err
	}
	return logs, paginationMeta(page, pageSize, total), nil
}
