package todo

import "context"

// Repository はストレージの抽象。memory / rdb の 2 実装がある。
// Find の「見つからない」はエラーではなく ok=false で返す。
type Repository interface {
	Insert(ctx context.Context, title string) (*Todo, error)
	Find(ctx context.Context, id int64) (*Todo, bool, error)
	Update(ctx context.Context, t *Todo) (*Todo, error)
	Remove(ctx context.Context, id int64) (bool, error)
	All(ctx context.Context) ([]*Todo, error)
}

// Transactor は「複数操作をひとまとまりで実行する」ための抽象。
// fn 内で渡された ctx を使うと、同じトランザクションに乗る。
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
