// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MarkupDetector はユーザーが入力した作業項目のテキストにHTMLマークアップが
// 含まれるかを判定する。テキストは書き換えずにそのまま保存し、マークアップを
// 含む入力は検証エラーとして拒否する。HTMLとしての出力時のエスケープは表示側が行う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// MarkupDetector はbluemondayのStrictPolicyでタグを検出する。
// ポリシーは生成後に変更しないため、複数のgoroutineから同時に利用できる。
type MarkupDetector struct {
	strict *bluemonday.Policy
}

// NewMarkupDetector はMarkupDetectorの新しいインスタンスを生成する。
func NewMarkupDetector() *MarkupDetector {
	return &MarkupDetector{strict: bluemonday.StrictPolicy()}
}

// ContainsMarkup はテキストがタグやコメントを含む場合にtrueを返す。
// "a < b" のような単独の "<" や "&amp;" などの文字実体参照はマークアップとみなさない。
func (d *MarkupDetector) ContainsMarkup(text string) bool {
	if !strings.Contains(text, "<") {
		return false
	}
	// トークナイザは改行をLFに揃えるので、比較前に入力側も揃える。
	plain := html.UnescapeString(d.strict.Sanitize(text))
	return plain != html.UnescapeString(newlineReplacer.Replace(text))
}
