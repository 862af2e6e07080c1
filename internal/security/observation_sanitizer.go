// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ObservationSanitizer は観測テキストの保存前サニタイズを行う。
// 観測はプレーンテキストの事実として保存され、後段のフロントエンドで
// そのまま表示される可能性があるため、HTMLタグとイベント属性を
// 書き込み時点で全て除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ObservationSanitizer は観測テキストのサニタイズ機能のインターフェースを定義する。
type ObservationSanitizer interface {
	// Sanitize は入力からHTMLマークアップを全て除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// observationSanitizer はObservationSanitizerの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type observationSanitizer struct {
	policy *bluemonday.Policy
}

// NewObservationSanitizer はObservationSanitizerの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、scriptやiframeはもちろん、
// 整形目的のタグも全て除去される。観測はプレーンテキストのみを保持する。
func NewObservationSanitizer() *observationSanitizer {
	return &observationSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は観測テキストからHTMLマークアップを除去する。
// bluemondayはエンティティ参照へのエスケープを行うため、
// 除去後にアンエスケープしてプレーンテキストへ戻す。
func (s *observationSanitizer) Sanitize(raw string) string {
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// compile-time interface check
var _ ObservationSanitizer = (*observationSanitizer)(nil)
