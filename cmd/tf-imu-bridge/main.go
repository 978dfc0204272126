// Command tf-imu-bridge reads IMU orientation frames off a serial port
// and pushes them into a running tfd instance over gRPC.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kinemesh/frametf/internal/tfgrpc"
	"github.com/kinemesh/frametf/internal/tfserial"
	"github.com/kinemesh/frametf/internal/tfwire"
)

var (
	port      = flag.String("port", "/dev/ttyUSB0", "serial device the IMU is attached to")
	baud      = flag.Int("baud", 115200, "serial baud rate")
	tfdAddr   = flag.String("tfd", "localhost:7533", "address of the tfd gRPC listener")
	child     = flag.String("child", "imu", "child frame name reported by the IMU")
	parent    = flag.String("parent", "base_link", "parent frame name the IMU is mounted on")
	authority = flag.String("authority", "imu-serial", "authority string recorded on each transform")
)

func main() {
	flag.Parse()

	sp, err := tfserial.OpenPort(*port, *baud)
	if err != nil {
		log.Fatalf("failed to open serial port %s: %v", *port, err)
	}
	defer sp.Close()

	conn, err := grpc.NewClient(*tfdAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(tfgrpc.Codec())))
	if err != nil {
		log.Fatalf("failed to dial tfd at %s: %v", *tfdAddr, err)
	}
	defer conn.Close()

	client := tfgrpc.NewClient(conn)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	lines := make(chan string)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(lines)
		scan := bufio.NewScanner(sp)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			log.Printf("serial read error: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("shutting down imu bridge...")
			wg.Wait()
			log.Println("imu bridge stopped")
			return
		case line, ok := <-lines:
			if !ok {
				wg.Wait()
				return
			}
			forward(ctx, client, line)
		}
	}
}

func forward(ctx context.Context, client *tfgrpc.Client, line string) {
	frame, err := tfserial.ParseFrame(line)
	if err != nil {
		log.Printf("discarding unparseable imu frame: %v (%q)", err, line)
		return
	}
	stamp := frame.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	sample := &tfwire.Sample{
		ChildFrame:   *child,
		ParentFrame:  *parent,
		Stamp:        tfwire.TimestampFromTime(stamp),
		TranslationX: frame.Transform.Translation[0],
		TranslationY: frame.Transform.Translation[1],
		TranslationZ: frame.Transform.Translation[2],
		RotationX:    frame.Transform.Rotation.Imag,
		RotationY:    frame.Transform.Rotation.Jmag,
		RotationZ:    frame.Transform.Rotation.Kmag,
		RotationW:    frame.Transform.Rotation.Real,
		Authority:    *authority,
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	ack, err := client.SetTransform(ctx, sample)
	if err != nil {
		log.Printf("failed to forward transform: %v", err)
		return
	}
	if !ack.Accepted {
		log.Printf("tfd rejected imu transform: %s", ack.Reason)
	}
}
