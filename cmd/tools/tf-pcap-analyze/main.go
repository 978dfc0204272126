//go:build pcap

// Command tf-pcap-analyze replays a pcap capture of UDP-transported
// transform traffic and reports per-edge timing and rate statistics.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kinemesh/frametf/internal/tfcapture"
)

func main() {
	pcapFile := flag.String("pcap", "", "path to a pcap file (required)")
	port := flag.Uint("port", 7534, "UDP port the transform traffic was sent to")
	flag.Parse()

	if *pcapFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -pcap is required")
		flag.Usage()
		os.Exit(1)
	}

	result, err := tfcapture.AnalyzeFile(*pcapFile, uint16(*port))
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	fmt.Print(tfcapture.Summary(result))
}
