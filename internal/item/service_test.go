package item

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/query"
	"github.com/hitoshi/taskhub/internal/repository"
	"github.com/hitoshi/taskhub/internal/security"
)

const (
	userA = "11111111-1111-1111-1111-111111111111"
	userB = "22222222-2222-2222-2222-222222222222"
	userC = "33333333-3333-3333-3333-333333333333"
)

var (
	alice = model.Authenticated(userA)
	bob   = model.Authenticated(userB)
	anon  = model.Anonymous()
)

// testClock は呼び出しごとに1秒進む時計。
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
	}
}

func newTaskService(t *testing.T) (*Service[*model.Task], *memStore[*model.Task], *recordingSink) {
	t.Helper()
	store := newMemStore(cloneTask)
	sink := &recordingSink{}
	clock := &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	users := &mockUserFinder{users: map[string]bool{userA: true, userB: true, userC: true}}
	svc := NewService(TaskDescriptor(users), store,
		WithClock[*model.Task](clock.Now),
		WithIDGenerator[*model.Task](sequentialIDs()),
		WithMarkupChecker[*model.Task](security.NewMarkupDetector()),
		WithEventSink[*model.Task](sink),
	)
	return svc, store, sink
}

func newNoteService(t *testing.T) (*Service[*model.Note], *memStore[*model.Note]) {
	t.Helper()
	store := newMemStore(cloneNote)
	clock := &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(NoteDescriptor(), store,
		WithClock[*model.Note](clock.Now),
		WithIDGenerator[*model.Note](sequentialIDs()),
	)
	return svc, store
}

func newTask(title, desc string) *model.Task {
	return &model.Task{Item: model.Item{Title: title, Description: desc}}
}

func mustCreateTask(t *testing.T, svc *Service[*model.Task], p model.Principal, title, desc string) *model.Task {
	t.Helper()
	rec, err := svc.Create(context.Background(), p, newTask(title, desc))
	if err != nil {
		t.Fatalf("create %q failed: %v", title, err)
	}
	return rec
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, apiErr.Code, apiErr.Message)
	}
}

// patch はレコードを書き換える部分更新用のMutatorを生成する。
func patch[T model.Record](fn func(T)) Mutator[T] {
	return func(cur T) (T, error) {
		fn(cur)
		return cur, nil
	}
}

// --- Create ---

// TestCreate_Anonymous は匿名ユーザーの作成がUnauthorizedになることを検証する。
func TestCreate_Anonymous(t *testing.T) {
	svc, store, _ := newTaskService(t)

	_, err := svc.Create(context.Background(), anon, newTask("Fix login", "desc"))
	assertCode(t, err, model.ErrCodeUnauthorized)
	if len(store.recs) != 0 {
		t.Error("expected nothing to be stored")
	}
}

// TestCreate_ForcesOwnerAndDefaults は所有者・ID・日時がサーバー側で設定され、既定値が補完されることを検証する。
func TestCreate_ForcesOwnerAndDefaults(t *testing.T) {
	svc, _, _ := newTaskService(t)

	in := newTask("  Fix login  ", "desc")
	in.ID = "client-supplied"
	in.OwnerID = userB
	in.CreatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	rec, err := svc.Create(context.Background(), alice, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.OwnerID != userA {
		t.Errorf("expected owner %s, got %s", userA, rec.OwnerID)
	}
	if rec.ID == "client-supplied" || rec.ID == "" {
		t.Errorf("expected generated id, got %q", rec.ID)
	}
	if rec.Title != "Fix login" {
		t.Errorf("expected trimmed title, got %q", rec.Title)
	}
	if rec.Status != model.TaskStatusTodo || rec.Priority != model.PriorityMedium {
		t.Errorf("expected defaults todo/medium, got %s/%s", rec.Status, rec.Priority)
	}
	if rec.CreatedAt.Year() != 2024 || !rec.CreatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("unexpected timestamps: created=%v updated=%v", rec.CreatedAt, rec.UpdatedAt)
	}
}

// TestCreate_DuplicateTitle は同一所有者内のタイトル重複が拒否され、別所有者では許可されることを検証する。
func TestCreate_DuplicateTitle(t *testing.T) {
	svc, _, _ := newTaskService(t)
	ctx := context.Background()

	mustCreateTask(t, svc, alice, "Fix login", "first")

	// 別ユーザーは同じタイトルで作成できる
	if _, err := svc.Create(ctx, bob, newTask("Fix login", "second")); err != nil {
		t.Fatalf("expected different owner to succeed, got %v", err)
	}

	_, err := svc.Create(ctx, alice, newTask("Fix login", "third"))
	assertCode(t, err, model.ErrCodeValidation)
	if !strings.Contains(err.Error(), model.DuplicateTitleMessage) {
		t.Errorf("expected duplicate message, got %v", err)
	}
}

// TestCreate_DuplicateTitleFromStore はストアの一意制約違反も同じ検証エラーになることを検証する。
func TestCreate_DuplicateTitleFromStore(t *testing.T) {
	svc, store, _ := newTaskService(t)
	mustCreateTask(t, svc, alice, "Fix login", "first")
	store.skipExists = true

	_, err := svc.Create(context.Background(), alice, newTask("Fix login", "again"))
	assertCode(t, err, model.ErrCodeValidation)
	var apiErr *model.APIError
	errors.As(err, &apiErr)
	if apiErr.Message != model.DuplicateTitleMessage || apiErr.Field != "title" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

// TestCreate_StoreFailure はストアの想定外エラーがラップされて返ることを検証する。
func TestCreate_StoreFailure(t *testing.T) {
	svc, store, sink := newTaskService(t)
	boom := errors.New("connection reset")
	store.createErr = boom

	_, err := svc.Create(context.Background(), alice, newTask("Fix login", "desc"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if got := sink.last(); got.ErrCode != model.ErrCodeInternal || got.Action != ActionCreate {
		t.Errorf("unexpected event: %+v", got)
	}
}

// TestCreate_Validation は入力検証違反が検証エラーになり保存されないことを検証する。
func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		task  *model.Task
		field string
	}{
		{"empty title", newTask("", "desc"), "title"},
		{"whitespace title", newTask("    ", "desc"), "title"},
		{"short title", newTask("ab", "desc"), "title"},
		{"long title", newTask(strings.Repeat("x", 201), "desc"), "title"},
		{"blank description", newTask("Fix login", "  "), "description"},
		{"invalid status", &model.Task{Item: model.Item{Title: "Fix login", Description: "d"}, Status: "archived"}, "status"},
		{"invalid priority", &model.Task{Item: model.Item{Title: "Fix login", Description: "d"}, Priority: "asap"}, "priority"},
		{"unknown assignee", &model.Task{Item: model.Item{Title: "Fix login", Description: "d"}, AssignedTo: strPtr("44444444-4444-4444-4444-444444444444")}, "assigned_to"},
		{"malformed assignee", &model.Task{Item: model.Item{Title: "Fix login", Description: "d"}, AssignedTo: strPtr("nobody")}, "assigned_to"},
		{"markup only title", newTask("<b></b>", "desc"), "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTaskService(t)
			_, err := svc.Create(context.Background(), alice, tt.task)
			assertCode(t, err, model.ErrCodeValidation)
			var apiErr *model.APIError
			errors.As(err, &apiErr)
			if apiErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, apiErr.Field)
			}
			if len(store.recs) != 0 {
				t.Error("expected nothing to be stored")
			}
		})
	}
}

// TestCreate_TitleBoundaries はタイトル長の境界値（3文字・200文字）が許可されることを検証する。
func TestCreate_TitleBoundaries(t *testing.T) {
	svc, _, _ := newTaskService(t)
	mustCreateTask(t, svc, alice, "abc", "desc")
	mustCreateTask(t, svc, alice, strings.Repeat("あ", 200), "desc")
}

// TestCreate_AssignedUser は存在するユーザーを担当者に指定できることを検証する。
func TestCreate_AssignedUser(t *testing.T) {
	svc, _, _ := newTaskService(t)
	in := newTask("Fix login", "desc")
	in.AssignedTo = strPtr(userC)

	rec, err := svc.Create(context.Background(), alice, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.AssignedTo == nil || *rec.AssignedTo != userC {
		t.Errorf("expected assignee %s, got %v", userC, rec.AssignedTo)
	}
}

// TestCreate_RejectsMarkup はマークアップを含むテキストが対象フィールドの検証エラーになることを検証する。
func TestCreate_RejectsMarkup(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		desc      string
		wantField string
	}{
		{"bare less-than in title", "Fix x<y bug", "desc", "title"},
		{"tag in title", "Fix <b>login</b>", "desc", "title"},
		{"script in description", "Crash on save", "<p>Steps</p><script>alert(1)</script>", "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTaskService(t)
			_, err := svc.Create(context.Background(), alice, newTask(tt.title, tt.desc))
			assertCode(t, err, model.ErrCodeValidation)
			var apiErr *model.APIError
			errors.As(err, &apiErr)
			if apiErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", apiErr.Field, tt.wantField)
			}
			if len(store.recs) != 0 {
				t.Errorf("rejected item must not be stored, got %d records", len(store.recs))
			}
		})
	}
}

// TestCreate_RejectsMarkupInKindFields は種別固有のテキストフィールドもマークアップ検出の対象であることを検証する。
func TestCreate_RejectsMarkupInKindFields(t *testing.T) {
	ctx := context.Background()
	detector := security.NewMarkupDetector()

	bugs := NewService(BugReportDescriptor(), newMemStore(cloneBug),
		WithMarkupChecker[*model.BugReport](detector))
	_, err := bugs.Create(ctx, alice, &model.BugReport{
		Item:           model.Item{Title: "Crash on save", Description: "steps"},
		ExpectedResult: "<em>saved</em>",
	})
	assertCode(t, err, model.ErrCodeValidation)
	var apiErr *model.APIError
	if errors.As(err, &apiErr); apiErr.Field != "expected_result" {
		t.Errorf("field = %q, want expected_result", apiErr.Field)
	}

	notes := NewService(NoteDescriptor(), newMemStore(cloneNote),
		WithMarkupChecker[*model.Note](detector))
	_, err = notes.Create(ctx, alice, &model.Note{
		Item: model.Item{Title: "Plan", Description: "q3"},
		Tags: "<i>ops</i>",
	})
	assertCode(t, err, model.ErrCodeValidation)
	if errors.As(err, &apiErr); apiErr.Field != "tags" {
		t.Errorf("field = %q, want tags", apiErr.Field)
	}
}

// TestCreate_StoresTextVerbatim は記号を含むテキストが書き換えられずに保存され、そのまま検索できることを検証する。
func TestCreate_StoresTextVerbatim(t *testing.T) {
	svc, _, _ := newTaskService(t)
	ctx := context.Background()
	const (
		title = "Can't compare a < b & c"
		desc  = "don't ship if a < b & c"
	)
	rec := mustCreateTask(t, svc, alice, title, desc)
	if rec.Title != title || rec.Description != desc {
		t.Errorf("stored %q / %q, want %q / %q", rec.Title, rec.Description, title, desc)
	}
	mustCreateTask(t, svc, alice, "AT&T outage", "carrier AT&amp;T is down")

	tests := []struct {
		q    string
		want int
	}{
		{"don't", 1},
		{"a < b", 1},
		{"b & c", 1},
		{"AT&amp;T", 1},
		{"AT&T", 1},
		{"lt", 0},
		{"#39", 0},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			recs, err := svc.List(ctx, anon, query.Filter{Text: tt.q})
			if err != nil {
				t.Fatalf("List(q=%q) failed: %v", tt.q, err)
			}
			if len(recs) != tt.want {
				t.Errorf("List(q=%q) returned %d items, want %d", tt.q, len(recs), tt.want)
			}
		})
	}
}

// --- Get ---

// TestGet_ReadIsPublic は所有者以外や匿名ユーザーも項目を取得できることを検証する。
func TestGet_ReadIsPublic(t *testing.T) {
	svc, _ := newNoteService(t)
	ctx := context.Background()
	note, err := svc.Create(ctx, alice, &model.Note{Item: model.Item{Title: "Plan", Description: "q3"}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, p := range []model.Principal{alice, bob, anon} {
		got, err := svc.Get(ctx, p, note.ID)
		if err != nil {
			t.Fatalf("get as %s failed: %v", p, err)
		}
		if got.Title != "Plan" || got.OwnerID != userA {
			t.Errorf("unexpected note: %+v", got)
		}
	}
}

// TestGet_NotFound は存在しないIDの取得がNotFoundになることを検証する。
func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTaskService(t)
	_, err := svc.Get(context.Background(), anon, "does-not-exist")
	assertCode(t, err, model.ErrCodeNotFound)
}

// --- Update ---

// TestUpdate_OwnerImmutable はペイロードで所有者・ID・作成日時を変更しても無視されることを検証する。
func TestUpdate_OwnerImmutable(t *testing.T) {
	svc, store, _ := newTaskService(t)
	orig := mustCreateTask(t, svc, alice, "Fix login", "desc")

	rec, err := svc.Update(context.Background(), alice, orig.ID, patch(func(cur *model.Task) {
		cur.OwnerID = userB
		cur.ID = "other"
		cur.CreatedAt = time.Time{}
		cur.Status = model.TaskStatusDone
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.OwnerID != userA || rec.ID != orig.ID || !rec.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("immutable fields changed: %+v", rec.Item)
	}
	if rec.Status != model.TaskStatusDone {
		t.Errorf("expected status done, got %s", rec.Status)
	}
	if !rec.UpdatedAt.After(orig.UpdatedAt) {
		t.Errorf("expected updated_at to advance: %v -> %v", orig.UpdatedAt, rec.UpdatedAt)
	}
	stored := store.recs[orig.ID]
	if stored.OwnerID != userA || stored.Status != model.TaskStatusDone {
		t.Errorf("unexpected stored record: %+v", stored)
	}
}

// TestUpdate_CheckOrder は未認証 -> 存在しない -> 所有者でない の順にチェックされることを検証する。
func TestUpdate_CheckOrder(t *testing.T) {
	svc, store, _ := newTaskService(t)
	orig := mustCreateTask(t, svc, alice, "Fix login", "desc")
	mutated := false
	m := patch(func(cur *model.Task) { mutated = true; cur.Title = "Hijacked" })
	ctx := context.Background()

	tests := []struct {
		name string
		p    model.Principal
		id   string
		code string
	}{
		{"anonymous existing", anon, orig.ID, model.ErrCodeUnauthorized},
		{"anonymous missing", anon, "missing", model.ErrCodeUnauthorized},
		{"other user missing", bob, "missing", model.ErrCodeNotFound},
		{"other user existing", bob, orig.ID, model.ErrCodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.p, tt.id, m)
			assertCode(t, err, tt.code)
		})
	}

	if mutated {
		t.Error("mutator must not run when the write is rejected")
	}
	if store.recs[orig.ID].Title != "Fix login" {
		t.Error("stored record must not change")
	}
}

// TestUpdate_TitleUniqueness はタイトル変更時に自身を除いて重複が検査されることを検証する。
func TestUpdate_TitleUniqueness(t *testing.T) {
	svc, _, _ := newTaskService(t)
	ctx := context.Background()
	first := mustCreateTask(t, svc, alice, "First", "desc")
	mustCreateTask(t, svc, alice, "Second", "desc")

	// タイトルを変えない更新は自身と重複扱いにならない
	if _, err := svc.Update(ctx, alice, first.ID, patch(func(cur *model.Task) { cur.Description = "new" })); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Update(ctx, alice, first.ID, patch(func(cur *model.Task) { cur.Title = "Second" }))
	assertCode(t, err, model.ErrCodeValidation)
}

// TestUpdate_FullReplace は新しいレコードを返すMutatorで可変フィールドが全て置き換わることを検証する。
func TestUpdate_FullReplace(t *testing.T) {
	svc, _, _ := newTaskService(t)
	orig := newTask("Fix login", "desc")
	orig.Status = model.TaskStatusReview
	orig.Priority = model.PriorityUrgent
	created, err := svc.Create(context.Background(), alice, orig)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rec, err := svc.Update(context.Background(), alice, created.ID, func(*model.Task) (*model.Task, error) {
		fresh := svc.New()
		fresh.Title = "Fix logout"
		fresh.Description = "replaced"
		return fresh, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != model.TaskStatusTodo || rec.Priority != model.PriorityMedium {
		t.Errorf("expected defaults after replace, got %s/%s", rec.Status, rec.Priority)
	}
	if rec.ID != created.ID || rec.OwnerID != userA {
		t.Errorf("immutable fields lost: %+v", rec.Item)
	}
}

// TestUpdate_MutatorError はMutatorのエラーがそのまま返ることを検証する。
func TestUpdate_MutatorError(t *testing.T) {
	svc, _, _ := newTaskService(t)
	orig := mustCreateTask(t, svc, alice, "Fix login", "desc")

	_, err := svc.Update(context.Background(), alice, orig.ID, func(*model.Task) (*model.Task, error) {
		return nil, model.NewInvalidRequestError("bad json")
	})
	assertCode(t, err, model.ErrCodeInvalidRequest)
}

// TestUpdate_ValidationFailureKeepsStore は検証エラー時にストアが変更されないことを検証する。
func TestUpdate_ValidationFailureKeepsStore(t *testing.T) {
	svc, store, _ := newTaskService(t)
	orig := mustCreateTask(t, svc, alice, "Fix login", "desc")

	_, err := svc.Update(context.Background(), alice, orig.ID, patch(func(cur *model.Task) { cur.Title = "x" }))
	assertCode(t, err, model.ErrCodeValidation)
	if store.recs[orig.ID].Title != "Fix login" {
		t.Error("stored record must not change")
	}
}

// --- Delete ---

// TestDelete は削除のチェック順と所有者による削除を検証する。
func TestDelete(t *testing.T) {
	svc, store, _ := newTaskService(t)
	ctx := context.Background()
	orig := mustCreateTask(t, svc, alice, "Fix login", "desc")

	assertCode(t, svc.Delete(ctx, anon, orig.ID), model.ErrCodeUnauthorized)
	assertCode(t, svc.Delete(ctx, bob, "missing"), model.ErrCodeNotFound)
	assertCode(t, svc.Delete(ctx, bob, orig.ID), model.ErrCodeForbidden)
	if _, ok := store.recs[orig.ID]; !ok {
		t.Fatal("record must survive rejected deletes")
	}

	if err := svc.Delete(ctx, alice, orig.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Get(ctx, alice, orig.ID)
	assertCode(t, err, model.ErrCodeNotFound)
	assertCode(t, svc.Delete(ctx, alice, orig.ID), model.ErrCodeNotFound)
}

// --- List ---

// TestList_TextFilterAcrossOwners は検索語が全所有者の項目に大文字小文字を区別せず適用されることを検証する。
func TestList_TextFilterAcrossOwners(t *testing.T) {
	svc, _, _ := newTaskService(t)
	mustCreateTask(t, svc, alice, "Fix BUG in login", "desc")
	mustCreateTask(t, svc, bob, "Write docs", "mention a bug here")
	mustCreateTask(t, svc, bob, "Refactor", "cleanup")

	for _, p := range []model.Principal{anon, alice, bob} {
		recs, err := svc.List(context.Background(), p, query.Filter{Text: "bug"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("expected 2 results for %s, got %d", p, len(recs))
		}
		if recs[0].Title != "Fix BUG in login" || recs[1].Title != "Write docs" {
			t.Errorf("unexpected order: %q, %q", recs[0].Title, recs[1].Title)
		}
	}
}

// TestList_EmptyStore は項目がない場合にnilではなく空スライスを返すことを検証する。
func TestList_EmptyStore(t *testing.T) {
	svc, _, _ := newTaskService(t)
	recs, err := svc.List(context.Background(), anon, query.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("expected empty slice, got %#v", recs)
	}
}

// TestList_FieldFilters は種別固有フィールドの完全一致絞り込みを検証する。
func TestList_FieldFilters(t *testing.T) {
	svc, _, _ := newTaskService(t)
	ctx := context.Background()
	done := newTask("Ship it", "desc")
	done.Status = model.TaskStatusDone
	if _, err := svc.Create(ctx, alice, done); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	mustCreateTask(t, svc, alice, "Start it", "desc")

	recs, err := svc.List(ctx, anon, query.Filter{Equals: map[string]string{"status": "done"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].Title != "Ship it" {
		t.Errorf("unexpected results: %+v", recs)
	}
}

// TestList_InvalidFilter は不正な絞り込みが検証エラーになりストアを参照しないことを検証する。
func TestList_InvalidFilter(t *testing.T) {
	svc, store, sink := newTaskService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, anon, query.Filter{Equals: map[string]string{"status": "archived"}})
	assertCode(t, err, model.ErrCodeValidation)

	_, err = svc.List(ctx, anon, query.Filter{Equals: map[string]string{"owner": userA}})
	assertCode(t, err, model.ErrCodeValidation)

	if store.scanCalls != 0 {
		t.Errorf("expected no scans, got %d", store.scanCalls)
	}
	if got := sink.last(); got.ErrCode != model.ErrCodeValidation {
		t.Errorf("expected failure event, got %+v", got)
	}
}

// TestList_ReQueriesStore は一覧取得ごとにストアが再検索されることを検証する。
func TestList_ReQueriesStore(t *testing.T) {
	svc, store, _ := newTaskService(t)
	ctx := context.Background()
	mustCreateTask(t, svc, alice, "First", "desc")

	first, _ := svc.List(ctx, anon, query.Filter{})
	mustCreateTask(t, svc, alice, "Second", "desc")
	second, _ := svc.List(ctx, anon, query.Filter{})

	if len(first) != 1 || len(second) != 2 {
		t.Errorf("expected 1 then 2 results, got %d then %d", len(first), len(second))
	}
	if store.scanCalls != 2 {
		t.Errorf("expected 2 scans, got %d", store.scanCalls)
	}
}

// TestList_NotePinnedFilter はbool型フィールドの絞り込み値が正規化されることを検証する。
func TestList_NotePinnedFilter(t *testing.T) {
	svc, _ := newNoteService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, alice, &model.Note{Item: model.Item{Title: "Pinned", Description: "d"}, IsPinned: true}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Create(ctx, alice, &model.Note{Item: model.Item{Title: "Loose", Description: "d"}}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, v := range []string{"true", "1", "TRUE"} {
		recs, err := svc.List(ctx, anon, query.Filter{Equals: map[string]string{"is_pinned": v}})
		if err != nil {
			t.Fatalf("is_pinned=%s: unexpected error: %v", v, err)
		}
		if len(recs) != 1 || recs[0].Title != "Pinned" {
			t.Errorf("is_pinned=%s: unexpected results %+v", v, recs)
		}
	}
}

// --- Events ---

// TestEvents は成功した操作ごとに操作者・種別・対象を含むイベントが記録されることを検証する。
func TestEvents(t *testing.T) {
	svc, _, sink := newTaskService(t)
	ctx := context.Background()
	rec := mustCreateTask(t, svc, alice, "Fix login", "desc")

	if _, err := svc.List(ctx, bob, query.Filter{Text: "fix"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if err := svc.Delete(ctx, alice, rec.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if len(sink.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(sink.events))
	}
	create, list, del := sink.events[0], sink.events[1], sink.events[2]
	if create.Action != ActionCreate || create.Actor != alice || create.ItemID != rec.ID || create.Kind != model.KindTask {
		t.Errorf("unexpected create event: %+v", create)
	}
	if list.Action != ActionList || list.Query != "fix" || list.Count != 1 || list.Actor != bob {
		t.Errorf("unexpected list event: %+v", list)
	}
	if del.Action != ActionDelete || del.Title != "Fix login" || !del.Succeeded() {
		t.Errorf("unexpected delete event: %+v", del)
	}
	if create.At.IsZero() {
		t.Error("expected event timestamp")
	}
}

// TestMultiSink は全ての出力先にイベントが配信されることを検証する。
func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	MultiSink{a, b, NopSink{}}.Record(context.Background(), Event{Action: ActionGet})
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("expected each sink to receive the event: %d, %d", len(a.events), len(b.events))
	}
}

// TestDescriptors は各種別の絞り込み可能フィールドを検証する。
func TestDescriptors(t *testing.T) {
	names := func(fs []query.Field) string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = f.Name
		}
		return strings.Join(out, ",")
	}
	if got := names(TaskDescriptor(nil).Fields); got != "status,priority,assigned_to" {
		t.Errorf("task fields: %s", got)
	}
	if got := names(BugReportDescriptor().Fields); got != "severity,status" {
		t.Errorf("bug fields: %s", got)
	}
	if got := names(NoteDescriptor().Fields); got != "note_type,is_pinned" {
		t.Errorf("note fields: %s", got)
	}
}

var _ repository.ItemRepository[*model.Task] = (*memStore[*model.Task])(nil)

func strPtr(s string) *string { return &s }
