package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"collegestudy/backend/internal/model"
	"collegestudy/backend/internal/repository"
)

// AudienceResolver 受众解析器：将 targeting 规格解析为具体接收者 ID 集合
//
// 解析语义：
//   - all：全部活跃用户
//   - filtered：三维度交集，nil 维度不限制
//   - users：显式列表与现存活跃用户求交（容忍陈旧 ID）
//
// 解析完成后统一扣除显式关闭该类型通知的用户（welcome 不可关闭）。
// 结果按 ID 升序排序，同一输入在同一数据快照下解析结果确定。
type AudienceResolver interface {
	Resolve(ctx context.Context, target model.Target, typ model.NotificationType) ([]string, error)
}

type audienceResolver struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAudienceResolver 创建 AudienceResolver 实例
func NewAudienceResolver(repo *repository.Repository, logger *zap.Logger) AudienceResolver {
	return &audienceResolver{repo: repo, logger: logger}
}

func (r *audienceResolver) Resolve(ctx context.Context, target model.Target, typ model.NotificationType) ([]string, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	var (
		ids []string
		err error
	)
	switch target.Kind {
	case model.TargetAll:
		ids, err = r.repo.User.ListActiveIDs(ctx)
	case model.TargetFiltered:
		ids, err = r.repo.User.ListIDsByFilter(ctx, repository.AudienceFilter{
			Branches:  target.Branches,
			Semesters: target.Semesters,
			Years:     target.Years,
		})
	case model.TargetUsers:
		ids, err = r.repo.User.FilterExistingIDs(ctx, target.UserIDs)
	}
	if err != nil {
		r.logger.Error("受众解析查询失败", zap.String("kind", string(target.Kind)), zap.Error(err))
		return nil, err
	}

	// 扣除偏好关闭该类型的用户；welcome 类型无对应偏好列，返回空集
	disabled, err := r.repo.Preference.DisabledUserIDs(ctx, typ)
	if err != nil {
		r.logger.Error("查询偏好关闭集合失败", zap.String("type", string(typ)), zap.Error(err))
		return nil, err
	}
	if len(disabled) > 0 {
		excluded := make(map[string]struct{}, len(disabled))
		for _, id := range disabled {
			excluded[id] = struct{}{}
		}
		kept := ids[:0]
		for _, id := range ids {
			if _, ok := excluded[id]; !ok {
				kept = append(kept, id)
			}
		}
		ids = kept
	}

	sort.Strings(ids)
	return ids, nil
}
