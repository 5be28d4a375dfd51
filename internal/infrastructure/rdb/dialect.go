package rdb

import (
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Dialect は DB エンジンごとの差分（ドライバ名・DDL・プール設定）をまとめたもの。
type Dialect struct {
	Name       string
	DriverName string
	Schema     string

	// 0 なら database/sql のデフォルト（無制限）
	MaxOpenConns int

	// Tx 内の SELECT に付ける行ロック句。
	// InnoDB の通常 SELECT はスナップショット読みなので、find → update の間に
	// 他の Tx が同じ行を書き換えられてしまう。SQLite は接続 1 本なので不要。
	LockClause string
}

// SQLite は埋め込み・単一ライタ前提なので接続は 1 本に絞る。
// AUTOINCREMENT を付けて、削除済みの最大 ID が再発行されないようにしている。
var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	Schema: `CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	completed BOOLEAN DEFAULT FALSE
)`,
	MaxOpenConns: 1,
}

var MySQL = Dialect{
	Name:       "mysql",
	DriverName: "mysql",
	Schema: `CREATE TABLE IF NOT EXISTS todos (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	title TEXT,
	completed BOOLEAN NOT NULL DEFAULT FALSE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	LockClause: " FOR UPDATE",
}

// DialectByName は STORE_DRIVER の値から Dialect を引く。
func DialectByName(name string) (Dialect, error) {
	switch name {
	case SQLite.Name:
		return SQLite, nil
	case MySQL.Name:
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
	}
}

// SQLiteDSN はファイルパスに busy_timeout を付けた DSN を返す。
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
}

type MySQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// MySQLDSN は go-sql-driver/mysql の Config から DSN を組み立てる。
// clientFoundRows を立てて、値が変わらない UPDATE でも一致行数が返るようにする。
func MySQLDSN(cfg MySQLConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	c.DBName = cfg.Name
	c.ParseTime = true
	c.ClientFoundRows = true
	c.Timeout = 5 * time.Second
	return c.FormatDSN()
}
