// Package tfrecorder is an optional audit sink for internal/tf.FrameGraph:
// it implements tf.AuditHook, buffers events to a channel, and persists
// them to sqlite so a deployment can inspect ingest/authority history
// after the fact. The live FrameGraph never reads this database back —
// restarting the daemon always starts from an empty graph.
package tfrecorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/kinemesh/frametf/internal/tf"
)

// eventQueueSize bounds how many AuditEvents the recorder buffers before
// Record starts dropping new events. Record must never stall
// FrameGraph.SetTransform, so this should comfortably absorb bursts.
const eventQueueSize = 4096

// Recorder persists tf.AuditEvents to sqlite. It satisfies tf.AuditHook.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger

	events chan tf.AuditEvent

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Open creates/opens a sqlite database at path, ensures its schema
// exists, and starts a background goroutine draining Record calls into
// it. Call Close to flush and stop the goroutine.
func Open(path string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tfrecorder: open %s: %w", path, err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			kind      TEXT NOT NULL,
			child     TEXT,
			parent    TEXT,
			authority TEXT,
			reason    TEXT,
			stamp     TIMESTAMP,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("tfrecorder: create schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		db:     db,
		logger: logger,
		events: make(chan tf.AuditEvent, eventQueueSize),
		cancel: cancel,
	}

	r.wg.Add(1)
	go r.drain(ctx)

	return r, nil
}

// MigrateUp applies every pending migration in migrationsDir, using
// golang-migrate's sqlite driver against the recorder's own connection.
func (r *Recorder) MigrateUp(migrationsDir string) error {
	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		return fmt.Errorf("tfrecorder: resolve migrations dir: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("tfrecorder: sqlite driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", absPath), "sqlite", driver)
	if err != nil {
		return fmt.Errorf("tfrecorder: migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("tfrecorder: migrate up: %w", err)
	}
	return nil
}

// Record implements tf.AuditHook. It never blocks on I/O: the event is
// pushed onto a buffered channel and written by the drain goroutine.
func (r *Recorder) Record(e tf.AuditEvent) {
	select {
	case r.events <- e:
	default:
		r.logger.Warn("audit event dropped, recorder queue full", "kind", e.Kind)
	}
}

func (r *Recorder) drain(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case e := <-r.events:
			r.insert(e)
		case <-ctx.Done():
			// Flush whatever is already queued before exiting.
			for {
				select {
				case e := <-r.events:
					r.insert(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) insert(e tf.AuditEvent) {
	_, err := r.db.Exec(
		`INSERT INTO audit_events (kind, child, parent, authority, reason, stamp) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Child, e.Parent, e.Authority, e.Reason, e.Stamp,
	)
	if err != nil {
		r.logger.Error("failed to persist audit event", "error", err, "kind", e.Kind)
	}
}

// Close stops the drain goroutine, flushing any buffered events, and
// closes the underlying database connection.
func (r *Recorder) Close() error {
	r.cancel()
	r.wg.Wait()
	return r.db.Close()
}

// AttachAdminRoutes mounts tailsql's SQL debugging UI and a tsweb debug
// index onto mux, the way the teacher's DB.AttachAdminRoutes does.
func (r *Recorder) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{RoutePrefix: "/debug/tailsql/"})
	if err != nil {
		return fmt.Errorf("tfrecorder: create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://audit.db", r.db, &tailsql.DBOptions{Label: "Transform Audit Log"})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	return nil
}

// RecentEvents returns the most recently recorded events, newest first,
// capped at limit.
func (r *Recorder) RecentEvents(limit int) ([]tf.AuditEvent, error) {
	rows, err := r.db.Query(
		`SELECT kind, child, parent, authority, reason, stamp FROM audit_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("tfrecorder: query recent events: %w", err)
	}
	defer rows.Close()

	var out []tf.AuditEvent
	for rows.Next() {
		var e tf.AuditEvent
		var child, parent, authority, reason sql.NullString
		var stamp sql.NullTime
		if err := rows.Scan(&e.Kind, &child, &parent, &authority, &reason, &stamp); err != nil {
			return nil, fmt.Errorf("tfrecorder: scan event: %w", err)
		}
		e.Child = child.String
		e.Parent = parent.String
		e.Authority = authority.String
		e.Reason = reason.String
		e.Stamp = stamp.Time
		out = append(out, e)
	}
	return out, rows.Err()
}
