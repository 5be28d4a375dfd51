package todo

import "errors"

// Todo は唯一のエンティティ。ID はストアが採番し、Title は作成後に変わらない。
type Todo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// ---- ドメインエラー（sentinel error） ----

// ErrNotFound は指定 ID の Todo が存在しないときの共通エラー。
var ErrNotFound = errors.New("todo not found")

// New は「新規作成用」のコンストラクタ。
// タイトルの中身はチェックしない（空文字も受け付ける）。
func New(title string) *Todo {
	return &Todo{
		Title:     title,
		Completed: false,
	}
}

// Toggle は completed を反転させる。変更できるフィールドはこれだけ。
func (t *Todo) Toggle() {
	t.Completed = !t.Completed
}

// Clone はストア内部のレコードを呼び出し側と共有しないためのコピー。
func (t *Todo) Clone() *Todo {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
