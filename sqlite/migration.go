package sqlite

import (
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// Migrate runs every *.sql script in fsys that the database hasn't seen yet.
// The number of applied scripts is tracked in pragma user_version, and all
// pending scripts run inside one savepoint.
func Migrate(conn *sqlite.Conn, fsys fs.FS) (err error) {
	release := sqlitex.Save(conn)
	defer release(&err)

	oldVer, err := userVersion(conn)
	if err != nil {
		return err
	}

	scripts, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list scripts: %w", err)
	}
	if oldVer >= len(scripts) {
		return nil
	}

	sort.Strings(scripts)
	for _, script := range scripts[oldVer:] {
		if err := execScript(conn, fsys, script); err != nil {
			return err
		}
	}

	newVer := strconv.Itoa(len(scripts))
	if err := sqlitex.ExecTransient(conn, "pragma user_version="+newVer, nil); err != nil {
		return fmt.Errorf("set version: %w", err)
	}
	return nil
}

func userVersion(conn *sqlite.Conn) (int, error) {
	var ver int
	if err := sqlitex.ExecTransient(conn, "pragma user_version", func(stmt *sqlite.Stmt) error {
		ver = stmt.ColumnInt(0)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return ver, nil
}

// execScript steps through every statement of a multi-statement script.
func execScript(conn *sqlite.Conn, fsys fs.FS, script string) error {
	buf, err := fs.ReadFile(fsys, script)
	if err != nil {
		return fmt.Errorf("read %s: %w", script, err)
	}
	queries := strings.TrimSpace(string(buf))
	for i := 0; queries != ""; i++ {
		stmt, trailingBytes, err := conn.PrepareTransient(queries)
		if err != nil {
			return fmt.Errorf("prepare %s, stmt %d: %w", script, i, err)
		}
		queries = queries[len(queries)-trailingBytes:]
		_, err = stmt.Step()
		stmt.Finalize()
		if err != nil {
			return fmt.Errorf("execute %s, stmt %d: %w", script, i, err)
		}
		queries = strings.TrimSpace(queries)
	}
	return nil
}
