// Package history persists an execution trace to a local SQLite
// database, grounded on the teacher's internal/database/db_manager.go
// blank-import `mattn/go-sqlite3` pattern. It is opt-in (`bcvm run
// --history=path.db`) and attaches to a *vm.Program only through the same
// vm.DebugHook seam internal/introspect uses — the VM package itself
// never imports it.
package history

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"

	"bcvm/internal/bytecode"
	"bcvm/internal/vm"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	session          TEXT NOT NULL,
	kind             TEXT NOT NULL,
	func_name        TEXT NOT NULL,
	func_fingerprint TEXT NOT NULL,
	ip               INTEGER NOT NULL,
	created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Store is a session-scoped trace sink.
type Store struct {
	db      *sql.DB
	session uuid.UUID
}

// Open creates (or reuses) a SQLite database at path and assigns a
// fresh session UUID for rows this Store writes.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, session: uuid.New()}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Fingerprint returns a BLAKE2b-256 hex digest of a function's
// current bytecode. Redefining a function reuses its table index in
// place (spec.md §4.6), so the fingerprint — not the index — is what
// lets history rows tell two distinct bodies of the same-named
// function apart across a session.
func Fingerprint(fn *bytecode.Function) string {
	sum := blake2b.Sum256(fn.Code)
	return fmt.Sprintf("%x", sum)
}

func (s *Store) record(kind, funcName, fingerprint string, ip int) error {
	_, err := s.db.Exec(
		`INSERT INTO events(session, kind, func_name, func_fingerprint, ip) VALUES (?,?,?,?,?)`,
		s.session.String(), kind, funcName, fingerprint, ip)
	return err
}

// Hook adapts Store to vm.DebugHook, recording one row per
// PRINT/PRINT_EXPR/STR/PRINT_STR/READ dispatch. OnInstruction fires
// before the opcode executes (spec §4.5's fetch-decode-dispatch
// order), so a row marks that the event occurred at a given
// function+ip rather than carrying the rendered output text itself.
// It never mutates Program state, so it cannot violate spec §5's
// single-threaded execution guarantee.
type Hook struct {
	Store *Store
}

func (h Hook) OnInstruction(p *vm.Program, frame vm.Frame, op bytecode.OpCode) {
	switch op {
	case bytecode.OpPrint, bytecode.OpPrintExpr, bytecode.OpStr, bytecode.OpPrintStr, bytecode.OpRead:
	default:
		return
	}
	fn := p.Function(frame.FuncID)
	_ = h.Store.record(op.String(), fn.Name, Fingerprint(fn), frame.IP)
}

func (h Hook) OnCall(p *vm.Program, funcID int)   {}
func (h Hook) OnReturn(p *vm.Program, funcID int) {}
func (h Hook) OnError(p *vm.Program, err error)   {}
