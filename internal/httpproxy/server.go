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

package httpproxy

import (
	"context"
	"net"

	"github.com/cloudwego/gopkg/concurrency/gopool"
	"github.com/sysheap-dev/allocproxy/internal/logx"
	"github.com/sysheap-dev/allocproxy/internal/proxycache"
	"github.com/sysheap-dev/allocproxy/netx"
)

// Server accepts TCP connections on a single port and dispatches one
// Handler call per connection through a bounded worker pool.
type Server struct {
	addr  string
	cache *proxycache.Cache
	pool  *gopool.GoPool
	log   *logx.Logger

	ln net.Listener
}

// NewServer builds a Server listening on addr (":port" or "host:port")
// backed by cache. Call Serve to start accepting.
func NewServer(addr string, cache *proxycache.Cache) *Server {
	pool := gopool.NewGoPool("httpproxy", nil)
	log := logx.New("httpproxy")
	pool.SetPanicHandler(func(_ context.Context, r interface{}) {
		log.Errorf("handler panic recovered: %v", r)
	})
	return &Server{
		addr:  addr,
		cache: cache,
		pool:  pool,
		log:   log,
	}
}

// Listen binds the server's TCP listener without accepting yet. Serve
// calls it if it has not been called; it exists separately so callers
// (tests, mainly) can learn the bound address of a ":0" listener
// before the accept loop starts.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until the listener errors (normally only
// on Close). Each accepted connection is wrapped and handed to Handler
// on a pooled goroutine.
func (s *Server) Serve() error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.log.Infof("listening on %s", s.ln.Addr())

	for {
		raw, err := s.ln.Accept()
		if err != nil {
			return err
		}
		cn, err := netx.Wrap(raw)
		if err != nil {
			raw.Close()
			s.log.Warnf("wrap accepted conn: %v", err)
			continue
		}
		s.pool.Go(func() {
			Handler(cn, s.cache, s.log)
		})
	}
}

// Close stops accepting new connections. Handlers already dispatched
// run to completion.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
