// Package transport moves length prefixed frames between the signer and a front-end process.
package transport

import (
	"encoding/binary"
	"io"
	"sync"
)

// MaxFrameSize is the largest payload a RWTransport frame can carry.
const MaxFrameSize = 0xFFFF

type Transport interface {
	ReadBytes() ([]byte, error)
	WriteBytes(data []byte) error
}

// T aliases Transport
type T = Transport

// MessageTransport read/write messages to inner Transport after converting them to bytes.
type MessageTransport struct {
	Transport
	S Serializer // Convert messages to bytes and bytes to messages.
}

// WriteMessage converts msg to bytes and writes msg bytes to inner Transport.
//
// If msg has a Check method, WriteMessage errors with ValidationError when Check fails.
func (self MessageTransport) WriteMessage(msg any) error {
	var srzmsg []byte
	var err error

	switch v := msg.(type) {
	case RawMsg:
		srzmsg = []byte(v)
	default:
		err = check(msg)
		if nil != err {
			return err
		}
		srzmsg, err = self.S.Marshal(msg)
		if nil != err {
			return wrapError(SerializationError, "failed marshalling msg, got error %v", err)
		}
	}

	err = self.WriteBytes(srzmsg)

	return wrapError(err, "failed writing msg") // nil if err is nil ...
}

// ReadMessage reads msg bytes from inner Transport and deserializes them to msg.
//
// If msg has a Check method, ReadMessage errors with ValidationError when Check fails.
func (self MessageTransport) ReadMessage(msg any) error {
	srzmsg, err := self.ReadBytes()
	if nil != err {
		return wrapError(err, "failed reading message bytes")
	}

	switch v := msg.(type) {
	case *RawMsg:
		*v = RawMsg(srzmsg)
		return nil
	default:
		err = self.S.Unmarshal(srzmsg, msg)
		if nil != err {
			return wrapError(SerializationError, "failed unmarshaling message, got error %v", err)
		}
	}

	return check(msg)
}

// RawMsg is a "marker" type used to disable serialization
type RawMsg []byte

// RWTransport frames data with a big endian uint16 length prefix.
//
// Concurrent WriteBytes calls are serialized so that frames never interleave.
type RWTransport struct {
	R io.Reader // source from which messages are read.
	W io.Writer // destination to which messages are written.

	wmut *sync.Mutex
}

// NewRWTransport returns a RWTransport reading from r and writing to w.
func NewRWTransport(r io.Reader, w io.Writer) RWTransport {
	return RWTransport{R: r, W: w, wmut: new(sync.Mutex)}
}

func (self RWTransport) ReadBytes() ([]byte, error) {
	// read size
	psb := make([]byte, 2)
	_, err := io.ReadFull(self.R, psb)
	if nil != err {
		return nil, wrapError(err, "failed reading data size")
	}
	psz := binary.BigEndian.Uint16(psb)

	// read data
	data := make([]byte, int(psz))
	_, err = io.ReadFull(self.R, data)
	if nil != err {
		return nil, wrapError(err, "failed reading data")
	}

	return data, nil
}

func (self RWTransport) WriteBytes(data []byte) error {
	if len(data) > MaxFrameSize {
		return wrapError(SizeError, "data larger than %d", MaxFrameSize)
	}

	// prefix data with uint16 length
	pdata := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(pdata, uint16(len(data)))
	copy(pdata[2:], data)

	if nil != self.wmut {
		self.wmut.Lock()
		defer self.wmut.Unlock()
	}
	_, err := self.W.Write(pdata)

	return wrapError(err, "failed writing data") // nil if err is nil
}

var _ Transport = RWTransport{}
