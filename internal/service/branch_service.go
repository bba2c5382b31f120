package service

import (
	"context"

	"go.uber.org/zap"

	"collegestudy/backend/internal/dto"
	"collegestudy/backend/internal/repository"
)

// BranchService 分院目录业务接口（目录由运维脚本维护，此处只读）
type BranchService interface {
	List(ctx context.Context) ([]dto.BranchResponse, error)
}

type branchService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewBranchService 创建 BranchService 实例
func NewBranchService(repo *repository.Repository, logger *zap.Logger) BranchService {
	return &branchService{repo: repo, logger: logger}
}

func (s *branchService) List(ctx context.Context) ([]dto.BranchResponse, error) {
	branches, err := s.repo.Branch.List(ctx)
	if err != nil {
		s.logger.Error("查询分院列表失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.BranchResponse, 0, len(branches))
	for _, b := range branches {
		items = append(items, dto.BranchResponse{Code: b.BranchCode, Name: b.Name})
	}
	return items, nil
}
