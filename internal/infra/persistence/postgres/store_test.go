package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"rostercore/pkg/domain"
)

// stubConn emulates the narrow slice of Postgres behavior the store uses: a
// single state table keyed by bucket with JSON payloads.
type stubConn struct {
	mu      sync.Mutex
	execs   []string
	buckets map[string][]byte
}

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{buckets: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *stubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, fmt.Errorf("not implemented")
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *stubConn) Ping(context.Context) error { return nil }

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "INSERT INTO STATE"):
		if len(args) != 2 {
			return nil, fmt.Errorf("expected bucket and payload args, got %d", len(args))
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("bucket must be a string, got %T", args[0].Value)
		}
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("payload must be bytes, got %T", args[1].Value)
		}
		c.buckets[bucket] = append([]byte(nil), payload...)
		return driver.RowsAffected(1), nil
	default:
		return nil, fmt.Errorf("unexpected exec: %s", query)
	}
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !strings.Contains(strings.ToUpper(query), "FROM STATE") {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	rows := &stubRows{}
	for bucket, payload := range c.buckets {
		rows.rows = append(rows.rows, [2]driver.Value{bucket, append([]byte(nil), payload...)})
	}
	return rows, nil
}

type stubRows struct {
	rows [][2]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	dest[0] = r.rows[r.idx][0]
	dest[1] = r.rows[r.idx][1]
	r.idx++
	return nil
}

func (c *stubConn) seedSnapshot(t *testing.T, employees map[string]domain.Employee) {
	t.Helper()
	payload, err := json.Marshal(employees)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[bucketEmployees] = payload
}

func TestNewStoreEnsuresTableAndLoadsSnapshot(t *testing.T) {
	db, conn := newStubDB()
	conn.seedSnapshot(t, map[string]domain.Employee{
		"emp-1": {Base: domain.Base{ID: "emp-1"}, Name: "Ada", Department: "Engineering"},
	})

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	employees := store.ListEmployees()
	if len(employees) != 1 || employees[0].Name != "Ada" {
		t.Fatalf("expected hydrated snapshot, got %+v", employees)
	}
	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
			break
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.execs)
	}
}

func TestRunInTransactionPersistsSnapshot(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateEmployee(domain.Employee{Name: "Grace", Department: "Research"})
		return err
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	conn.mu.Lock()
	payload := conn.buckets[bucketEmployees]
	conn.mu.Unlock()
	if len(payload) == 0 {
		t.Fatalf("expected employees bucket to be persisted")
	}
	var persisted map[string]domain.Employee
	if err := json.Unmarshal(payload, &persisted); err != nil {
		t.Fatalf("decode persisted snapshot: %v", err)
	}
	if len(persisted) != 1 {
		t.Fatalf("expected one persisted employee, got %d", len(persisted))
	}
	for _, e := range persisted {
		if e.Name != "Grace" {
			t.Fatalf("unexpected persisted employee: %+v", e)
		}
	}
}

func TestOverrideSQLOpenRestores(t *testing.T) {
	marker := func(_, _ string) (*sql.DB, error) { return nil, fmt.Errorf("marker") }
	restore := OverrideSQLOpen(marker)
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "marker") {
		t.Fatalf("expected override to be used, got %v", err)
	}
	restore()
}
