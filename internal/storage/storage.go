package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	FolderPosts     = "posts"
	FolderResources = "resources"
	FolderBlogs     = "blogs"
	FolderAvatars   = "avatars"
)

var ErrFileType = errors.New("file type is not allowed")

var allowedExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".mp4": true, ".mov": true, ".webm": true,
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
}

var videoExt = map[string]bool{".mp4": true, ".mov": true, ".webm": true}

var imageExt = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// Storage 文件存储适配器：本地磁盘或对象存储，返回可访问的 URL
type Storage interface {
	Store(ctx context.Context, r io.Reader, filename, folder string) (string, error)
	Delete(ctx context.Context, url string) error
}

func Allowed(filename string) bool {
	return allowedExt[strings.ToLower(filepath.Ext(filename))]
}

func IsImage(filename string) bool {
	return imageExt[strings.ToLower(filepath.Ext(filename))]
}

func IsVideo(filename string) bool {
	return videoExt[strings.ToLower(filepath.Ext(filename))]
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName uuid 前缀避免重名，原始文件名只保留安全字符
func objectName(filename string) string {
	base := unsafeChars.ReplaceAllString(filepath.Base(filename), "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file" + strings.ToLower(filepath.Ext(filename))
	}
	return uuid.NewString() + "_" + base
}

func validFolder(folder string) bool {
	switch folder {
	case FolderPosts, FolderResources, FolderBlogs, FolderAvatars:
		return true
	}
	return false
}

func ownerTag(userID uint64) string {
	return "u" + strconv.FormatUint(userID, 10) + "_"
}

// OwnedName 文件名带上上传者标记，之后删除前用 OwnedBy 校验
func OwnedName(userID uint64, filename string) string {
	return ownerTag(userID) + filepath.Base(filename)
}

// OwnedBy url 位于 folder 目录下，且文件由 userID 通过 OwnedName 上传
func OwnedBy(url, folder string, userID uint64) bool {
	if url == "" || path.Base(path.Dir(url)) != folder {
		return false
	}
	tag := ownerTag(userID)
	base := path.Base(url)
	if strings.HasPrefix(base, tag) {
		return true
	}
	_, rest, ok := strings.Cut(base, "_")
	return ok && strings.HasPrefix(rest, tag)
}
