package tfrecorder

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kinemesh/frametf/internal/tf"
)

func TestRecorder_RecordsAndReadsBack(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.db")
	r, err := Open(path, nil)
	require.NoError(t, err)
	defer r.Close()

	r.Record(tf.AuditEvent{Kind: "accepted", Child: "lidar", Parent: "base_link", Authority: "driver", Stamp: time.Unix(1000, 0)})

	require.Eventually(t, func() bool {
		events, err := r.RecentEvents(10)
		return err == nil && len(events) == 1
	}, time.Second, 5*time.Millisecond)

	events, err := r.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "accepted", events[0].Kind)
	assert.Equal(t, "lidar", events[0].Child)
}

func TestRecorder_AttachesToFrameGraph(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.db")
	r, err := Open(path, nil)
	require.NoError(t, err)
	defer r.Close()

	graph := tf.NewFrameGraph(time.Minute)
	graph.AttachAuditHook(r)

	graph.SetTransform("lidar", "base_link", time.Now(), tf.Identity(), "driver")

	require.Eventually(t, func() bool {
		events, err := r.RecentEvents(10)
		return err == nil && len(events) >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestRecorder_CloseFlushesPendingEvents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.db")
	r, err := Open(path, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		r.Record(tf.AuditEvent{Kind: "accepted", Child: "lidar"})
	}
	require.NoError(t, r.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&count))
	assert.Equal(t, 5, count)
}
