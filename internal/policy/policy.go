// Package policy は項目の所有権に基づくアクセス判定を提供する。
//
// 判定は入力のみに依存する純粋関数で、ストアへのアクセスやログ出力は行わない。
// 管理者による上書きはここでは扱わない。
package policy

import "github.com/hitoshi/taskhub/internal/model"

// Operation は判定対象の操作種別。
type Operation int

const (
	// OpRead は一覧・詳細取得を表す。
	OpRead Operation = iota
	// OpWrite は更新・削除を表す。
	OpWrite
)

// String はログ出力用の表現を返す。
func (o Operation) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	}
	return "unknown"
}

// Decision は判定結果。
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// String はログ出力用の表現を返す。
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Decide はprincipalがownerIDの項目に対してopを行えるかを判定する。
// 読み取りは常に許可し、書き込みは認証済みかつ所有者本人の場合のみ許可する。
func Decide(principal model.Principal, ownerID string, op Operation) Decision {
	switch op {
	case OpRead:
		return Allow
	case OpWrite:
		if principal.IsAuthenticated() && principal.UserID == ownerID {
			return Allow
		}
	}
	return Deny
}

// DecideItem はDecideの項目版。
func DecideItem(principal model.Principal, item *model.Item, op Operation) Decision {
	return Decide(principal, item.OwnerID, op)
}
