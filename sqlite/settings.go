// Package sqlite stores device settings in a SQLite database.
package sqlite

import (
	"fmt"
	"sort"
	"sync"

	"bsid.es/despertador"
	"bsid.es/despertador/sqlite/migration"
	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// Settings is a despertador.Settings backed by a single SQLite connection.
type Settings struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

var _ despertador.Settings = (*Settings)(nil)

// Open opens (creating if needed) the database at path and brings its schema
// up to date. Use ":memory:" for a throwaway database.
func Open(path string) (*Settings, error) {
	conn, err := sqlite.OpenConn(path, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := Migrate(conn, migration.Scripts); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &Settings{conn: conn}, nil
}

func (s *Settings) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *Settings) Get(namespace, key string) (value string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err = sqlitex.Exec(
		s.conn,
		"select value from settings where namespace = ? and key = ?",
		func(stmt *sqlite.Stmt) error {
			value, ok = stmt.ColumnText(0), true
			return nil
		},
		namespace, key,
	)
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	return value, ok, nil
}

// Set upserts all values inside one savepoint.
func (s *Settings) Set(namespace string, values map[string]string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release := sqlitex.Save(s.conn)
	defer release(&err)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := sqlitex.Exec(
			s.conn,
			`insert into settings (namespace, key, value) values (?, ?, ?)
			 on conflict (namespace, key) do update set value = excluded.value`,
			nil,
			namespace, k, values[k],
		); err != nil {
			return fmt.Errorf("set %s/%s: %w", namespace, k, err)
		}
	}
	return nil
}
