// Package authz は注釈に対する変更操作の認可判定を提供する。
//
// 判定は純粋関数で、所有者一致または管理者であることのみを条件とする。
// 読み取り操作は認可判定の対象外（誰でも可能）。
package authz

import (
	"strings"

	"github.com/hitoshi/pinmap/internal/model"
)

// Policy は所有者・管理者の認可判定を行う。
type Policy struct {
	adminUserID   string
	adminUsername string
}

// NewPolicy はPolicyを生成する。
// adminUserIDが設定されている場合は外部IDの完全一致で管理者を判定する。
// adminUsernameは表示名の大文字小文字を無視した一致で判定する。
// 表示名はIdPの仕様次第で変更・偽装されうるため、adminUserIDの設定を推奨する。
func NewPolicy(adminUserID, adminUsername string) *Policy {
	return &Policy{
		adminUserID:   adminUserID,
		adminUsername: adminUsername,
	}
}

// IsAdmin は呼び出し元が管理者かどうかを判定する。
func (p *Policy) IsAdmin(identity *model.Identity) bool {
	if identity == nil {
		return false
	}
	if p.adminUserID != "" && identity.ExternalID == p.adminUserID {
		return true
	}
	if p.adminUsername != "" && strings.EqualFold(identity.DisplayName, p.adminUsername) {
		return true
	}
	return false
}

// CanMutate は呼び出し元が指定の所有者の注釈を変更できるかを判定する。
// 所有者本人または管理者の場合にtrueを返す。
func (p *Policy) CanMutate(ownerExternalID string, identity *model.Identity) bool {
	if identity == nil {
		return false
	}
	if identity.ExternalID != "" && identity.ExternalID == ownerExternalID {
		return true
	}
	return p.IsAdmin(identity)
}
