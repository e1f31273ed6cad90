package transport

import (
	"sync"
)

// LimitTransport is a Transport that fails once a certain number of frames have been processed.
//
// LimitTransport is provided to simplify front-end push testing.
type LimitTransport struct {
	Transport
	mut    sync.Mutex
	rlimit int // 0 means unlimited
	wlimit int
	reads  int
	writes int
}

// NewLimitTransport returns a new LimitTransport that wraps t.
func NewLimitTransport(t Transport) *LimitTransport {
	return &LimitTransport{Transport: t}
}

// SetReadLimit sets the number of frames that can be read before ReadBytes fails.
func (self *LimitTransport) SetReadLimit(limit int) {
	self.mut.Lock()
	defer self.mut.Unlock()

	self.rlimit = limit
}

// SetWriteLimit sets the number of frames that can be written before WriteBytes fails.
func (self *LimitTransport) SetWriteLimit(limit int) {
	self.mut.Lock()
	defer self.mut.Unlock()

	self.wlimit = limit
}

// Writes returns the number of frames successfully written.
func (self *LimitTransport) Writes() int {
	self.mut.Lock()
	defer self.mut.Unlock()

	return self.writes
}

// ReadBytes errors with ReadLimitError once the read limit has been reached.
func (self *LimitTransport) ReadBytes() ([]byte, error) {
	self.mut.Lock()
	defer self.mut.Unlock()

	if self.rlimit > 0 && self.reads >= self.rlimit {
		return nil, wrapError(ReadLimitError, "read limit %d reached", self.rlimit)
	}
	data, err := self.Transport.ReadBytes()
	if nil == err {
		self.reads += 1
	}

	return data, err
}

// WriteBytes errors with WriteLimitError once the write limit has been reached.
func (self *LimitTransport) WriteBytes(data []byte) error {
	self.mut.Lock()
	defer self.mut.Unlock()

	if self.wlimit > 0 && self.writes >= self.wlimit {
		return wrapError(WriteLimitError, "write limit %d reached", self.wlimit)
	}
	err := self.Transport.WriteBytes(data)
	if nil == err {
		self.writes += 1
	}

	return err
}

var _ Transport = &LimitTransport{}
