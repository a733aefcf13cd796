package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はカタログのコース名に混入したマークアップを除去する。
type TextSanitizer interface {
	// Clean はタグを除去し、連続する空白を1つにまとめたプレーンテキストを返す。
	Clean(raw string) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを使うTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean はタグを除去した結果をHTMLエスケープ前の文字列に戻して返す。
// 出力はJSONとして返却されるため、"&"などを実体参照のまま残さない。
func (s *textSanitizer) Clean(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Join(strings.Fields(stripped), " ")
}
