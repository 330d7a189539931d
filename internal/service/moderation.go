package service

import (
	"context"
	"strings"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"
	"PulseLoop/internal/storage"
)

// moderation 资源与博客共用的审核流程
type moderation[T model.Moderated] struct {
	repo     *rdb.ModerationRepository[T]
	store    storage.Storage
	notifier *NotificationService
	kind     string
	// ownsFile 为 nil 时文件地址总是由服务端生成，可直接删除
	ownsFile func(owner uint64, url string) bool
}

// discardFile 只删除属于作者本人的文件
func (m *moderation[T]) discardFile(ctx context.Context, owner uint64, url string) {
	if m.ownsFile != nil && !m.ownsFile(owner, url) {
		return
	}
	discard(ctx, m.store, url)
}

// ListApproved 公开列表只包含已通过的内容
func (m *moderation[T]) ListApproved(ctx context.Context) ([]T, error) {
	return m.repo.ListByStatus(ctx, model.StatusApproved)
}

func (m *moderation[T]) ListPending(ctx context.Context) ([]T, error) {
	return m.repo.ListByStatus(ctx, model.StatusPending)
}

func (m *moderation[T]) ListMine(ctx context.Context, authorID uint64) ([]T, error) {
	return m.repo.ListByAuthor(ctx, authorID)
}

func (m *moderation[T]) ListAll(ctx context.Context) ([]T, error) {
	return m.repo.ListAll(ctx)
}

// Get 未通过审核的内容只对作者和管理员可见
func (m *moderation[T]) Get(ctx context.Context, id, viewerID uint64, viewerRole model.Role) (*T, error) {
	item, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoErr(err, m.kind+" not found")
	}
	if (*item).CurrentStatus() != model.StatusApproved &&
		(*item).Owner() != viewerID && viewerRole != model.RoleAdmin {
		return nil, pkg.NotFound(m.kind + " not found")
	}
	return item, nil
}

// Decide 管理员审核动作；状态不符时按不存在处理
func (m *moderation[T]) Decide(ctx context.Context, id uint64, d model.Decision, reason string, adminID uint64) (*T, error) {
	reason = strings.TrimSpace(reason)
	if d == model.DecisionReject && reason == "" {
		return nil, pkg.Validation("a rejection reason is required")
	}
	item, err := m.repo.Transition(ctx, id, d, reason, adminID)
	if err != nil {
		return nil, repoErr(err, m.kind+" not found or not in a valid state for "+string(d))
	}

	owner := (*item).Owner()
	if owner != adminID && (d == model.DecisionApprove || d == model.DecisionReject) {
		msg := "Your " + m.kind + " \"" + (*item).Heading() + "\" was approved"
		if d == model.DecisionReject {
			msg = "Your " + m.kind + " \"" + (*item).Heading() + "\" was rejected: " + reason
		}
		m.notifier.notifyQuietly(ctx, owner, model.NotifyContentModerated, "Content "+string((*item).CurrentStatus()), msg,
			map[string]any{"content_type": m.kind, "content_id": id, "status": string((*item).CurrentStatus())})
	}
	return item, nil
}

// checkEditor 作者或管理员可以编辑和删除
func (m *moderation[T]) checkEditor(ctx context.Context, id, callerID uint64, callerRole model.Role) (*T, error) {
	item, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoErr(err, m.kind+" not found")
	}
	if (*item).Owner() != callerID && callerRole != model.RoleAdmin {
		return nil, pkg.Forbidden("you can only modify your own " + m.kind)
	}
	return item, nil
}

func (m *moderation[T]) Delete(ctx context.Context, id, callerID uint64, callerRole model.Role) error {
	item, err := m.checkEditor(ctx, id, callerID, callerRole)
	if err != nil {
		return err
	}
	if err = m.repo.Delete(ctx, id); err != nil {
		return err
	}
	m.discardFile(ctx, (*item).Owner(), (*item).StoredFile())
	return nil
}
