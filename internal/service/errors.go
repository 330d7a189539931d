package service

import (
	"context"
	"errors"

	"PulseLoop/internal/pkg"
	"PulseLoop/internal/repository/rdb"
	"PulseLoop/internal/storage"

	"github.com/sirupsen/logrus"
)

// repoErr 把仓储层的哨兵错误翻译成业务错误
func repoErr(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rdb.ErrInvitationInvalid):
		return pkg.Validation("invalid or expired invitation")
	case errors.Is(err, rdb.ErrStateMismatch):
		return pkg.NotFound(notFoundMsg)
	}
	switch pkg.KindOf(err) {
	case pkg.KindNotFound:
		return pkg.NotFound(notFoundMsg)
	case pkg.KindConflict:
		return pkg.Conflict("duplicate request, please retry")
	}
	return err
}

// discard 尽力删除已上传的文件，失败只记日志
func discard(ctx context.Context, store storage.Storage, url string) {
	if store == nil || url == "" {
		return
	}
	if err := store.Delete(ctx, url); err != nil {
		pkg.Log.WithFields(logrus.Fields{"url": url, "err": err}).Warn("stored file cleanup failed")
	}
}
