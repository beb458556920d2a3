// Package ethhdr splits the Ethernet header off received frames and joins it
// back onto payloads for transmission.
package ethhdr

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/bft-labs/ethlink/internal/domain"
	"github.com/bft-labs/ethlink/internal/stream"
)

// Header is the destination, source and EtherType fields of a frame.
type Header struct {
	Dst  net.HardwareAddr
	Src  net.HardwareAddr
	Type layers.EthernetType
}

// ParseHeader decodes the first domain.HeaderLen bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < domain.HeaderLen {
		return Header{}, fmt.Errorf("%d bytes: %w", len(b), domain.ErrHeaderTruncated)
	}
	h := Header{
		Dst:  make(net.HardwareAddr, 6),
		Src:  make(net.HardwareAddr, 6),
		Type: layers.EthernetType(binary.BigEndian.Uint16(b[12:14])),
	}
	copy(h.Dst, b[0:6])
	copy(h.Src, b[6:12])
	return h, nil
}

// AppendTo appends the wire form of h to b. Missing addresses are sent as zeros.
func (h Header) AppendTo(b []byte) []byte {
	var hw [domain.HeaderLen]byte
	copy(hw[0:6], h.Dst)
	copy(hw[6:12], h.Src)
	binary.BigEndian.PutUint16(hw[12:14], uint16(h.Type))
	return append(b, hw[:]...)
}

func (h Header) String() string {
	return fmt.Sprintf("%s > %s %s", h.Src, h.Dst, h.Type)
}

// Join prepends h to the payload frame and segments the result into words of
// width bytes. The payload's error tag is kept.
func Join(h Header, payload domain.Frame, width int) []domain.StreamWord {
	data := h.AppendTo(make([]byte, 0, domain.HeaderLen+len(payload.Data)))
	data = append(data, payload.Data...)
	return stream.Segment(domain.Frame{Data: data, Err: payload.Err}, width)
}

// Describe decodes frame for logging.
func Describe(frame []byte) string {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.NoCopy)
	eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		return fmt.Sprintf("undecodable frame (%d bytes)", len(frame))
	}
	return fmt.Sprintf("%s > %s %s len=%d", eth.SrcMAC, eth.DstMAC, eth.EthernetType, len(eth.Payload))
}
