// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// ユーザーの作成・削除は外部の認証基盤が行い、本サービスは参照のみ行う。
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Principal はリクエストを行っている主体を表す。
// UserIDが空の場合は匿名ユーザー。
type Principal struct {
	UserID string
}

// Anonymous は匿名ユーザーを表すPrincipalを返す。
func Anonymous() Principal {
	return Principal{}
}

// Authenticated は指定ユーザーとして認証済みのPrincipalを返す。
func Authenticated(userID string) Principal {
	return Principal{UserID: userID}
}

// IsAuthenticated は認証済みかどうかを返す。
func (p Principal) IsAuthenticated() bool {
	return p.UserID != ""
}

// String はログ出力用の表現を返す。
func (p Principal) String() string {
	if !p.IsAuthenticated() {
		return "anonymous"
	}
	return p.UserID
}
