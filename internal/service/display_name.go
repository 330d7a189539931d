package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"PulseLoop/internal/model"
)

const anonymousName = "Anonymous"

// DisplayName 发帖时按偏好生成展示名，结果随帖子保存
func DisplayName(fullName string, pref model.DisplayNamePreference) string {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return anonymousName
	}
	switch pref {
	case model.PreferFullName:
		return parts[0]
	case model.PreferInitials:
		var b strings.Builder
		for _, p := range parts {
			r, _ := utf8.DecodeRuneInString(p)
			b.WriteRune(unicode.ToUpper(r))
			b.WriteByte('.')
		}
		return b.String()
	default:
		return anonymousName
	}
}
