// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザー入力の注釈テキスト（タイトル、説明、カテゴリ）を
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// 注釈テキストはプレーンテキストとして扱うため、bluemondayのStrictPolicyで
// HTMLタグをすべて除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は注釈テキストのサニタイズ機能のインターフェースを定義する。
// 注釈の保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からHTMLタグをすべて除去し、前後の空白を取り除いた
	// プレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはタグを一切許可しないため、注釈テキストはプレーンテキストになる。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
// bluemondayは残存テキストをHTMLエスケープするため、
// プレーンテキストとして保存する前にエスケープを解除する。
func (s *textSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(input)))
}
