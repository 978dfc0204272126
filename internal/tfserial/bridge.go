// Package tfserial ingests IMU orientation frames from a serial port and
// writes them into a FrameGraph, the way the teacher's serialmux package
// turns a line-oriented serial device into subscriber events.
package tfserial

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"gonum.org/v1/gonum/num/quat"

	"github.com/kinemesh/frametf/internal/tf"
)

// Porter defines the minimal interface needed for a serial port.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// OpenPort opens a real serial port at path, baud 8N1, the way the
// teacher's factory.NewRealSerialMux configures one.
func OpenPort(path string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = 115200
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(path, mode)
}

// Bridge reads newline-delimited IMU frames off a serial port and feeds
// them into a FrameGraph as child→parent transforms. One Bridge owns
// exactly one (child, parent) edge.
type Bridge[T Porter] struct {
	port   T
	graph  *tf.FrameGraph
	child  string
	parent string
	logger *slog.Logger

	authority string

	closingMu sync.Mutex
	closing   bool
}

// New returns a Bridge that writes parsed frames to graph as the
// child→parent edge, attributed to authority.
func New[T Porter](port T, graph *tf.FrameGraph, child, parent, authority string, logger *slog.Logger) *Bridge[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if authority == "" {
		authority = "imu-serial"
	}
	return &Bridge[T]{port: port, graph: graph, child: child, parent: parent, authority: authority, logger: logger}
}

// Monitor reads lines from the serial port until ctx is done or the port
// returns an error, parsing each line as an IMU frame and inserting it
// into the graph. It mirrors serialmux.Monitor's cancellable-scan shape.
func (b *Bridge[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(b.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErrChan:
			return err
		case line, ok := <-lineChan:
			if !ok {
				return scan.Err()
			}
			b.closingMu.Lock()
			closing := b.closing
			b.closingMu.Unlock()
			if closing {
				return nil
			}
			b.ingest(line)
		}
	}
}

// ingest parses one line and, on success, writes it into the graph. A
// line that fails to parse is logged and skipped; it never stops the
// monitor loop, since a flaky serial link shouldn't take down the whole
// registry.
func (b *Bridge[T]) ingest(line string) {
	frame, err := ParseFrame(line)
	if err != nil {
		b.logger.Warn("discarding unparseable imu frame", "error", err, "line", line)
		return
	}
	stamp := frame.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	if ok := b.graph.SetTransform(b.child, b.parent, stamp, frame.Transform, b.authority); !ok {
		b.logger.Warn("imu frame rejected by frame graph", "child", b.child, "parent", b.parent)
	}
}

func (b *Bridge[T]) Close() error {
	b.closingMu.Lock()
	b.closing = true
	b.closingMu.Unlock()
	return b.port.Close()
}

// Frame is one parsed IMU sample: orientation plus an optional
// device-reported timestamp.
type Frame struct {
	Transform tf.Transform
	Stamp     time.Time
}

// ParseFrame parses a line of the form:
//
//	qw,qx,qy,qz,tx,ty,tz[,unix_nanos]
//
// Quaternion and translation fields are required; the trailing
// timestamp is optional, in which case the caller stamps the frame with
// time.Now() on arrival.
func ParseFrame(line string) (Frame, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 7 && len(fields) != 8 {
		return Frame{}, fmt.Errorf("tfserial: expected 7 or 8 comma-separated fields, got %d", len(fields))
	}

	values := make([]float64, 7)
	for i := 0; i < 7; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return Frame{}, fmt.Errorf("tfserial: field %d: %w", i, err)
		}
		values[i] = v
	}

	frame := Frame{
		Transform: tf.Transform{
			Translation: [3]float64{values[4], values[5], values[6]},
			Rotation: quat.Number{Real: values[0], Imag: values[1], Jmag: values[2], Kmag: values[3]},
		},
	}

	if len(fields) == 8 {
		nanos, err := strconv.ParseInt(strings.TrimSpace(fields[7]), 10, 64)
		if err != nil {
			return Frame{}, fmt.Errorf("tfserial: timestamp field: %w", err)
		}
		frame.Stamp = time.Unix(0, nanos).UTC()
	}

	return frame, nil
}
