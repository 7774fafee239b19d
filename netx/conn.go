// Copyright 2025 Allocproxy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package netx

import (
	"net"
	"sync/atomic"

	"github.com/cloudwego/gopkg/bufiox"
)

var _ Conn = &conn{}

// ConnState is the lifecycle state of a wrapped connection.
type ConnState uint32

const (
	// StateOpen means Close has not been called on this wrapper. A close
	// by the peer does not change the state.
	StateOpen ConnState = iota
	// StateClosed means Close has been called on this wrapper.
	StateClosed
)

type Conn interface {
	// Conn is extended to provide the native interfaces of net.Conn.
	// NOT recommended to directly call the Write/Read interface.
	// Instead, calling the Reader and Writer to implement higher-performance
	// user mode zero-copy read/writes.
	net.Conn

	// Reader returns bufiox.Reader for nocopy reading.
	Reader() bufiox.Reader
	// Writer returns bufiox.Writer for nocopy writing.
	Writer() bufiox.Writer

	// State returns the lifecycle state of the connection.
	State() ConnState
}

type conn struct {
	net.Conn
	state uint32

	reader bufiox.Reader
	writer bufiox.Writer
}

func (c *conn) Reader() bufiox.Reader {
	return c.reader
}

func (c *conn) Writer() bufiox.Writer {
	return c.writer
}

func (c *conn) State() ConnState {
	return ConnState(atomic.LoadUint32(&c.state))
}

func (c *conn) Close() error {
	atomic.StoreUint32(&c.state, uint32(StateClosed))
	return c.Conn.Close()
}

// Wrap attaches buffered nocopy reader/writer to cn.
func Wrap(cn net.Conn) (Conn, error) {
	return &conn{
		Conn:   cn,
		reader: bufiox.NewDefaultReader(cn),
		writer: bufiox.NewDefaultWriter(cn),
	}, nil
}
