// Package mcproto speaks the Minecraft Java Edition wire protocol:
// varint-framed packets, the server list ping, and the login handshake
// used to classify how a server authenticates players.
package mcproto

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
)

// maxPacketSize bounds a single framed packet. Anything larger is a
// protocol violation or a trap.
const maxPacketSize = 1 << 21

func writeVarInt(w io.Writer, v int) error {
	u := uint32(v)
	var buf [5]byte
	n := 0
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf[n] = b
		n++
		if u == 0 {
			return writeAll(w, buf[:n])
		}
	}
}

func readVarInt(r io.ByteReader) (int, error) {
	var v uint32
	for shift := 0; shift < 35; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return int(int32(v)), nil
		}
	}
	return 0, fmt.Errorf("varint longer than 5 bytes")
}

func writeString(w io.Writer, s string) error {
	if err := writeVarInt(w, len(s)); err != nil {
		return err
	}
	return writeAll(w, []byte(s))
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readVarInt(r)
	if err != nil {
		return "", err
	}
	if n < 0 || n > r.Len() {
		return "", fmt.Errorf("string length %d exceeds packet", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > r.Len() {
		// some servers declare more than they send; take what is there
		n = r.Len()
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return writeAll(w, buf[:])
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return writeAll(w, buf[:])
}

func writeBool(w io.Writer, v bool) error {
	b := []byte{0}
	if v {
		b[0] = 1
	}
	return writeAll(w, b)
}

func writeAll(w io.Writer, p []byte) error {
	_, err := w.Write(p)
	return err
}

// writePacket frames id+payload with the uncompressed length prefix.
func writePacket(w io.Writer, id int, payload []byte) error {
	var body bytes.Buffer
	if err := writeVarInt(&body, id); err != nil {
		return err
	}
	body.Write(payload)

	if err := writeVarInt(w, body.Len()); err != nil {
		return err
	}
	return writeAll(w, body.Bytes())
}

// writePacketCompressed frames id+payload per the post-compression format.
// Below the threshold the packet is sent with a zero data-length marker.
func writePacketCompressed(w io.Writer, id int, payload []byte, threshold int) error {
	var body bytes.Buffer
	if err := writeVarInt(&body, id); err != nil {
		return err
	}
	body.Write(payload)

	if threshold <= 0 {
		return writePacket(w, id, payload)
	}

	var framed bytes.Buffer
	if body.Len() < threshold {
		writeVarInt(&framed, 0)
		framed.Write(body.Bytes())
	} else {
		writeVarInt(&framed, body.Len())
		zw := zlib.NewWriter(&framed)
		if _, err := zw.Write(body.Bytes()); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	}

	if err := writeVarInt(w, framed.Len()); err != nil {
		return err
	}
	return writeAll(w, framed.Bytes())
}

// readPacket reads one uncompressed frame and returns its id and payload.
func readPacket(r *bufio.Reader) (int, *bytes.Reader, error) {
	length, err := readVarInt(r)
	if err != nil {
		return 0, nil, err
	}
	if length <= 0 || length > maxPacketSize {
		return 0, nil, fmt.Errorf("packet length %d out of bounds", length)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return 0, nil, err
	}

	body := bytes.NewReader(frame)
	id, err := readVarInt(body)
	if err != nil {
		return 0, nil, err
	}
	return id, body, nil
}

// readPacketCompressed reads one frame in the post-compression format.
func readPacketCompressed(r *bufio.Reader) (int, *bytes.Reader, error) {
	length, err := readVarInt(r)
	if err != nil {
		return 0, nil, err
	}
	if length <= 0 || length > maxPacketSize {
		return 0, nil, fmt.Errorf("packet length %d out of bounds", length)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return 0, nil, err
	}

	body := bytes.NewReader(frame)
	dataLength, err := readVarInt(body)
	if err != nil {
		return 0, nil, err
	}
	if dataLength > 0 {
		if dataLength > maxPacketSize {
			return 0, nil, fmt.Errorf("inflated length %d out of bounds", dataLength)
		}
		zr, err := zlib.NewReader(body)
		if err != nil {
			return 0, nil, err
		}
		defer zr.Close()
		inflated := make([]byte, dataLength)
		if _, err := io.ReadFull(zr, inflated); err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(inflated)
	}

	id, err := readVarInt(body)
	if err != nil {
		return 0, nil, err
	}
	return id, body, nil
}

// handshake sends the version-independent handshake packet. nextState is
// 1 for status, 2 for login.
func handshake(w io.Writer, protocol int, host string, port int, nextState int) error {
	var payload bytes.Buffer
	if err := writeVarInt(&payload, protocol); err != nil {
		return err
	}
	if err := writeString(&payload, host); err != nil {
		return err
	}
	if err := writeUint16(&payload, uint16(port)); err != nil {
		return err
	}
	if err := writeVarInt(&payload, nextState); err != nil {
		return err
	}
	return writePacket(w, 0x00, payload.Bytes())
}
