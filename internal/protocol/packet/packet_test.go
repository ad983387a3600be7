package packet

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &Packet{Type: TypeImageFrame, ClientID: 42, Payload: []byte("hello world")}
	buf, err := EncodePlain(p)
	if err != nil {
		t.Fatalf("EncodePlain: %v", err)
	}
	typ, length, crc, clientID, err := DecodePlainHeader(buf[:PlainHeaderSize])
	if err != nil {
		t.Fatalf("DecodePlainHeader: %v", err)
	}
	if typ != TypeImageFrame {
		t.Fatalf("type mismatch: got %v", typ)
	}
	if int(length) != len(p.Payload) {
		t.Fatalf("length mismatch: got %d want %d", length, len(p.Payload))
	}
	if clientID != 42 {
		t.Fatalf("client id mismatch: got %d", clientID)
	}
	payload := buf[PlainHeaderSize:]
	if !bytes.Equal(payload, p.Payload) {
		t.Fatalf("payload mismatch")
	}
	if !VerifyCRC(clientID, payload, crc) {
		t.Fatalf("crc verification failed")
	}
}

func TestDecodeBadMagic(t *testing.T) {
	p := &Packet{Type: TypePing, ClientID: 1, Payload: nil}
	buf, _ := EncodePlain(p)
	buf[0] ^= 0xFF
	if _, _, _, _, err := DecodePlainHeader(buf[:PlainHeaderSize]); err == nil {
		t.Fatalf("expected bad magic error")
	}
}

func TestDecodeCrcMismatch(t *testing.T) {
	p := &Packet{Type: TypePing, ClientID: 7, Payload: []byte("x")}
	buf, _ := EncodePlain(p)
	buf[len(buf)-1] ^= 0xFF // corrupt payload without touching header
	_, _, crc, clientID, err := DecodePlainHeader(buf[:PlainHeaderSize])
	if err != nil {
		t.Fatalf("DecodePlainHeader: %v", err)
	}
	if VerifyCRC(clientID, buf[PlainHeaderSize:], crc) {
		t.Fatalf("expected crc mismatch on corrupted payload")
	}
}

func TestReadWritePlainRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	p := &Packet{Type: TypeAudioBatch, ClientID: 99, Payload: []byte{1, 2, 3, 4}}
	if err := WritePlain(&buf, nil, p); err != nil {
		t.Fatalf("WritePlain: %v", err)
	}
	got, err := ReadPlain(&buf, nil)
	if err != nil {
		t.Fatalf("ReadPlain: %v", err)
	}
	if got.Type != p.Type || got.ClientID != p.ClientID || !bytes.Equal(got.Payload, p.Payload) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestTooLargePayloadRejected(t *testing.T) {
	p := &Packet{Type: TypeImageFrame, Payload: make([]byte, MaxPayload+1)}
	if _, err := EncodePlain(p); err == nil {
		t.Fatalf("expected too-large error")
	}
}

func TestTypeString(t *testing.T) {
	if TypeImageFrame.String() != "IMAGE_FRAME" {
		t.Fatalf("unexpected String(): %s", TypeImageFrame.String())
	}
	if Type(9999).String() == "" {
		t.Fatalf("unknown type should still stringify")
	}
}

func TestIsHandshake(t *testing.T) {
	if !TypeKeyExchangeInit.IsHandshake() {
		t.Fatalf("expected KEY_EXCHANGE_INIT to be a handshake type")
	}
	if TypeImageFrame.IsHandshake() {
		t.Fatalf("IMAGE_FRAME must not be a handshake type")
	}
}
