// Command tf-plot renders PNG timelines of a tfd instance's edges,
// pulled over gRPC, one file per frame in the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kinemesh/frametf/internal/tf"
	"github.com/kinemesh/frametf/internal/tfgrpc"
	"github.com/kinemesh/frametf/internal/tfviz"
	"github.com/kinemesh/frametf/internal/tfwire"
)

func main() {
	tfdAddr := flag.String("tfd", "localhost:7533", "address of the tfd gRPC listener")
	outputDir := flag.String("output", "./tf-plots", "directory to write PNG timelines into")
	sampleEvery := flag.Duration("interval", time.Second, "how often to poll tfd for new samples")
	duration := flag.Duration("duration", 30*time.Second, "how long to sample before plotting")
	child := flag.String("child", "", "child frame to sample (required)")
	parent := flag.String("parent", "", "parent frame paired with -child (required)")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}

	conn, err := grpc.NewClient(*tfdAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(tfgrpc.Codec())))
	if err != nil {
		log.Fatalf("failed to dial tfd at %s: %v", *tfdAddr, err)
	}
	defer conn.Close()
	client := tfgrpc.NewClient(conn)

	if *child == "" || *parent == "" {
		fmt.Fprintln(os.Stderr, "Error: -child and -parent are required")
		flag.Usage()
		os.Exit(1)
	}

	graph := tf.NewFrameGraph(*duration + time.Minute)
	deadline := time.Now().Add(*duration)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		reply, err := client.LookupTransform(ctx, &tfwire.LookupRequest{TargetFrame: *parent, SourceFrame: *child})
		cancel()
		if err != nil {
			log.Printf("lookup failed: %v", err)
		} else if reply.OK {
			graph.SetTransform(*child, *parent, time.Now(), tfgrpc.SampleToTransform(&reply.Transform), "tf-plot")
		}
		time.Sleep(*sampleEvery)
	}

	written, err := tfviz.PlotAllTimelines(graph, *outputDir)
	if err != nil {
		log.Fatalf("failed to write plots: %v", err)
	}
	fmt.Printf("wrote %d timeline PNG(s) to %s\n", written, *outputDir)
}
