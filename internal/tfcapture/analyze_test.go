//go:build pcap

package tfcapture

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinemesh/frametf/internal/tfwire"
)

// writeTestCapture synthesizes a pcap file containing one UDP packet
// per sample, using pcapgo's pure-Go writer so the fixture can be
// built without a real capture.
func writeTestCapture(t *testing.T, path string, samples []tfwire.Sample, port layers.UDPPort) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for i, sample := range samples {
		eth := layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
			DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(127, 0, 0, 1),
			DstIP:    net.IPv4(127, 0, 0, 1),
		}
		udp := layers.UDP{SrcPort: 40000, DstPort: port}
		require.NoError(t, udp.SetNetworkLayerForChecksum(&ip))

		buf := gopacket.NewSerializeBuffer()
		payload := gopacket.Payload(sample.Encode())
		opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, payload))

		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     time.Unix(int64(i), 0),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}, buf.Bytes()))
	}
}

func TestAnalyzeFile_AccumulatesPerEdgeStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.pcap")

	samples := []tfwire.Sample{
		{ChildFrame: "lidar", ParentFrame: "base_link", Stamp: tfwire.TimestampFromTime(time.Unix(1000, 0)), RotationW: 1},
		{ChildFrame: "lidar", ParentFrame: "base_link", Stamp: tfwire.TimestampFromTime(time.Unix(1001, 0)), RotationW: 1},
		{ChildFrame: "lidar", ParentFrame: "base_link", Stamp: tfwire.TimestampFromTime(time.Unix(1002, 0)), RotationW: 1},
	}
	writeTestCapture(t, path, samples, 7534)

	result, err := AnalyzeFile(path, 7534)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalPackets)
	assert.Equal(t, 0, result.Malformed)
	require.Len(t, result.Edges, 1)

	edge := result.Edges[edgeKey("lidar", "base_link")]
	require.NotNil(t, edge)
	assert.Equal(t, 3, edge.Count)
	assert.Equal(t, time.Second, edge.AvgGap)
}

func TestAnalyzeFile_IgnoresOtherPorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.pcap")
	samples := []tfwire.Sample{
		{ChildFrame: "lidar", ParentFrame: "base_link", RotationW: 1},
	}
	writeTestCapture(t, path, samples, 9999)

	result, err := AnalyzeFile(path, 7534)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalPackets)
	assert.Empty(t, result.Edges)
}
