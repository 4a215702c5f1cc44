// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は外部ゲームAPIから取得したあらすじ（summary）を
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// RAWGのdescriptionはHTML断片を含むため、bluemondayのStrictPolicyで
// タグを全て除去し、プレーンテキストとして保存する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はあらすじテキストのサニタイズ機能のインターフェースを定義する。
// ゲームカタログへの保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeText は入力からHTMLタグを全て除去し、プレーンテキストを返す。
	// script, iframe, style等のタグはタグごと除去され、p, br等の
	// 整形タグはテキストのみが残る。HTMLエンティティはデコードされる。
	// 連続する空白・改行は1つのスペースに正規化される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、全てのタグが除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力からHTMLタグを全て除去し、プレーンテキストを返す。
// bluemondayはタグ除去後のテキストをHTMLエスケープして返すため、
// html.UnescapeStringでエンティティを元のテキストに戻す。
// この出力はHTMLとして解釈される場所には埋め込まず、JSONの文字列値として返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	decoded := html.UnescapeString(stripped)
	return collapseWhitespace(decoded)
}

// collapseWhitespace は連続する空白文字（改行・タブ含む）を1つのスペースに
// 正規化し、前後の空白を除去する。
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
