// Package query は一覧取得時の絞り込み条件を組み立てる。
//
// 条件はPredicateとして一度だけ表現し、SQL（squirrel）とメモリ上の評価の
// 両方に同じ意味を与える。所有者による絞り込みは行わない。
package query

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/hitoshi/taskhub/internal/model"
)

// Filter は一覧リクエストの絞り込み指定。
type Filter struct {
	// Text はタイトルまたは説明に対する部分一致検索語。大文字小文字は区別しない。
	Text string
	// Equals は種別固有フィールドの完全一致条件（フィールド名 -> 値）。
	Equals map[string]string
}

// Field は完全一致で絞り込めるフィールドの定義。
type Field struct {
	Name   string
	Column string
	// Normalize は入力値を検証し、比較用の正規形を返す。不正な値の場合はfalse。
	Normalize func(v string) (string, bool)
	// Convert は正規形をSQLパラメータに変換する。nilの場合は文字列のまま渡す。
	Convert func(v string) any
}

// FilterError は絞り込み条件が不正な場合のエラー。
type FilterError struct {
	Field string
	Value string
	// Unknown は未対応のフィールドが指定されたことを示す。
	Unknown bool
}

// Error はerrorインターフェースを実装する。
func (e *FilterError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("unknown filter field: %s", e.Field)
	}
	return fmt.Sprintf("invalid value for filter %s: %q", e.Field, e.Value)
}

type fieldMatch struct {
	field Field
	value string
}

// Predicate はコンパイル済みの絞り込み条件。ゼロ値は全件一致。
type Predicate struct {
	text   string
	lower  string
	equals []fieldMatch
}

// Compile はFilterを検証してPredicateを生成する。
// allowedに含まれないフィールドや不正な値はFilterErrorとなる。
func Compile(f Filter, allowed []Field) (Predicate, error) {
	p := Predicate{text: strings.TrimSpace(f.Text)}
	p.lower = strings.ToLower(p.text)

	byName := make(map[string]Field, len(allowed))
	for _, fd := range allowed {
		byName[fd.Name] = fd
	}

	names := make([]string, 0, len(f.Equals))
	for name := range f.Equals {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fd, ok := byName[name]
		if !ok {
			return Predicate{}, &FilterError{Field: name, Unknown: true}
		}
		raw := f.Equals[name]
		v, ok := raw, true
		if fd.Normalize != nil {
			v, ok = fd.Normalize(raw)
		}
		if !ok {
			return Predicate{}, &FilterError{Field: name, Value: raw}
		}
		p.equals = append(p.equals, fieldMatch{field: fd, value: v})
	}

	return p, nil
}

// Text は検索語（前後の空白除去済み）を返す。
func (p Predicate) Text() string {
	return p.text
}

// IsEmpty は条件が全件一致かどうかを返す。
func (p Predicate) IsEmpty() bool {
	return p.text == "" && len(p.equals) == 0
}

// Match はメモリ上の項目が条件に一致するかを返す。
func (p Predicate) Match(r model.Record) bool {
	base := r.Base()
	if p.lower != "" {
		if !strings.Contains(strings.ToLower(base.Title), p.lower) &&
			!strings.Contains(strings.ToLower(base.Description), p.lower) {
			return false
		}
	}
	for _, m := range p.equals {
		v, ok := r.FilterValue(m.field.Name)
		if !ok || v != m.value {
			return false
		}
	}
	return true
}

// Sqlizer は条件をWHERE句として返す。全件一致の場合はnilを返す。
func (p Predicate) Sqlizer() sq.Sqlizer {
	and := sq.And{}
	if p.text != "" {
		pattern := "%" + EscapeLike(p.text) + "%"
		and = append(and, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		})
	}
	for _, m := range p.equals {
		var v any = m.value
		if m.field.Convert != nil {
			v = m.field.Convert(m.value)
		}
		and = append(and, sq.Eq{m.field.Column: v})
	}
	if len(and) == 0 {
		return nil
	}
	return and
}

// EscapeLike はLIKEパターンのメタ文字（\ % _）をエスケープする。
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
