// Command tf-monitor serves an HTML dashboard visualizing a live tfd
// instance's frame tree and edge update rates, pulled over gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kinemesh/frametf/internal/tf"
	"github.com/kinemesh/frametf/internal/tfgrpc"
	"github.com/kinemesh/frametf/internal/tfviz"
)

var (
	tfdAddr = flag.String("tfd", "localhost:7533", "address of the tfd gRPC listener")
	listen  = flag.String("listen", ":7535", "address to serve the dashboard on")
)

func main() {
	flag.Parse()

	conn, err := grpc.NewClient(*tfdAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(tfgrpc.Codec())))
	if err != nil {
		log.Fatalf("failed to dial tfd at %s: %v", *tfdAddr, err)
	}
	defer conn.Close()
	client := tfgrpc.NewClient(conn)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		graph, err := mirrorGraph(r.Context(), client)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		html, err := tfviz.RenderFrameTree(graph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	})
	mux.HandleFunc("/rates", func(w http.ResponseWriter, r *http.Request) {
		graph, err := mirrorGraph(r.Context(), client)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		html, err := tfviz.RenderEdgeRates(graph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	})

	log.Printf("tf-monitor listening on %s, pulling from %s", *listen, *tfdAddr)
	log.Fatal(http.ListenAndServe(*listen, mux))
}

// mirrorGraph rebuilds a scratch FrameGraph from tfd's AllFrames text
// report, good enough to drive the tree/rate visualizations without
// requiring tfd to expose its internal graph directly.
func mirrorGraph(ctx context.Context, client *tfgrpc.Client) (*tf.FrameGraph, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reply, err := client.AllFrames(ctx)
	if err != nil {
		return nil, fmt.Errorf("tf-monitor: fetch frames: %w", err)
	}

	graph := tf.NewFrameGraph(time.Minute)
	edges, err := tf.ParseAllFramesText(reply.Text)
	if err != nil {
		return nil, fmt.Errorf("tf-monitor: parse frames report: %w", err)
	}
	now := time.Now()
	for _, e := range edges {
		graph.SetTransform(e.Child, e.Parent, now, tf.Identity(), "")
	}
	return graph, nil
}
