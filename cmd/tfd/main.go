// Command tfd is the transform registry daemon: it owns the
// FrameGraph/Resolver pair and exposes them over gRPC and plain HTTP,
// optionally recording every accepted/rejected transform to sqlite and
// ingesting a serial IMU as a producer, the way the teacher's main.go
// wires a serial port, a database, and an HTTP server together behind a
// signal-driven shutdown.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/kinemesh/frametf/internal/tf"
	"github.com/kinemesh/frametf/internal/tfconfig"
	"github.com/kinemesh/frametf/internal/tfgrpc"
	"github.com/kinemesh/frametf/internal/tfhttp"
	"github.com/kinemesh/frametf/internal/tfrecorder"
	"github.com/kinemesh/frametf/internal/tfserial"
	"gonum.org/v1/gonum/num/quat"
)

var configPath = flag.String("config", "tfd.yaml", "path to the tfd YAML configuration file")

func main() {
	flag.Parse()

	cfg, err := tfconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	graph := tf.NewFrameGraph(cfg.Graph.CacheTime)
	resolver := tf.NewResolver(graph, cfg.Graph.MaxExtrapolationDistance, cfg.Graph.MaxGraphDepth)

	for _, sf := range cfg.Static {
		transform := tf.Transform{
			Translation: sf.Translation,
			Rotation:    quat.Number{Real: sf.Rotation[0], Imag: sf.Rotation[1], Jmag: sf.Rotation[2], Kmag: sf.Rotation[3]},
		}
		if ok := graph.SetTransform(sf.Child, sf.Parent, time.Now(), transform, "static"); !ok {
			log.Fatalf("failed to ingest static frame %s -> %s", sf.Child, sf.Parent)
		}
	}

	var rec *tfrecorder.Recorder
	if cfg.Recorder.Enabled {
		rec, err = tfrecorder.Open(cfg.Recorder.DSN, slog.Default())
		if err != nil {
			log.Fatalf("failed to open recorder: %v", err)
		}
		defer rec.Close()
		graph.AttachAuditHook(rec)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if cfg.GRPC.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runGRPCServer(ctx, cfg.GRPC.Addr, graph, resolver)
			log.Print("grpc server routine terminated")
		}()
	}

	if cfg.HTTP.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runHTTPServer(ctx, cfg.HTTP.Addr, graph, resolver, rec)
			log.Print("http server routine terminated")
		}()
	}

	if cfg.Serial.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runSerialBridge(ctx, cfg.Serial, graph)
			log.Print("serial bridge routine terminated")
		}()
	}

	wg.Wait()
	log.Printf("graceful shutdown complete")
}

func runGRPCServer(ctx context.Context, addr string, graph *tf.FrameGraph, resolver *tf.Resolver) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("failed to listen on %s: %v", addr, err)
		return
	}

	srv := grpc.NewServer(grpc.ForceServerCodec(tfgrpc.Codec()))
	tfgrpc.RegisterTransformServiceServer(srv, tfgrpc.NewServer(graph, resolver))

	go func() {
		if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			log.Printf("grpc server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down gRPC server...")
	srv.GracefulStop()
}

func runHTTPServer(ctx context.Context, addr string, graph *tf.FrameGraph, resolver *tf.Resolver, rec *tfrecorder.Recorder) {
	mux := tfhttp.NewServer(graph, resolver).ServeMux()

	if rec != nil {
		if err := rec.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach admin routes: %v", err)
		}
	}

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}

func runSerialBridge(ctx context.Context, cfg tfconfig.SerialConfig, graph *tf.FrameGraph) {
	port, err := tfserial.OpenPort(cfg.Port, cfg.BaudRate)
	if err != nil {
		log.Printf("failed to open serial port %s: %v", cfg.Port, err)
		return
	}
	defer port.Close()

	bridge := tfserial.New(port, graph, cfg.Child, cfg.Parent, "imu-serial", slog.Default())
	if err := bridge.Monitor(ctx); err != nil && err != context.Canceled {
		log.Printf("failed to monitor serial port: %v", err)
	}
}
