package model

// Severity はバグの深刻度を表す。
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid は定義済みの値かどうかを返す。
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// BugStatus はバグレポートの対応状況を表す。
// 遷移の制約はなく、定義済みの値であればどの値からでも変更できる。
type BugStatus string

const (
	BugStatusReported   BugStatus = "reported"
	BugStatusConfirmed  BugStatus = "confirmed"
	BugStatusInProgress BugStatus = "in_progress"
	BugStatusResolved   BugStatus = "resolved"
	BugStatusClosed     BugStatus = "closed"
	BugStatusReopened   BugStatus = "reopened"
)

// IsValid は定義済みの値かどうかを返す。
func (s BugStatus) IsValid() bool {
	switch s {
	case BugStatusReported, BugStatusConfirmed, BugStatusInProgress,
		BugStatusResolved, BugStatusClosed, BugStatusReopened:
		return true
	}
	return false
}

// BugReport はユーザーが所有するバグレポートを表す。
type BugReport struct {
	Item
	Severity       Severity  `json:"severity" db:"severity"`
	Status         BugStatus `json:"status" db:"status"`
	ExpectedResult string    `json:"expected_result" db:"expected_result"`
}

// Kind は項目の種別を返す。
func (b *BugReport) Kind() Kind {
	return KindBugReport
}

// ApplyDefaults は未設定のフィールドに既定値を設定する。
func (b *BugReport) ApplyDefaults() {
	if b.Severity == "" {
		b.Severity = SeverityMedium
	}
	if b.Status == "" {
		b.Status = BugStatusReported
	}
}

// Validate は共通属性とバグレポート固有フィールドを検証する。
func (b *BugReport) Validate() error {
	if err := b.Item.Validate(); err != nil {
		return err
	}
	if !b.Severity.IsValid() {
		return NewInvalidChoiceError("severity", string(b.Severity))
	}
	if !b.Status.IsValid() {
		return NewInvalidChoiceError("status", string(b.Status))
	}
	return nil
}

// FilterValue は一覧フィルタ用のフィールド値を返す。
func (b *BugReport) FilterValue(field string) (string, bool) {
	switch field {
	case "severity":
		return string(b.Severity), true
	case "status":
		return string(b.Status), true
	}
	return "", false
}
