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
	"errors"
	"io"
	"net"
	"time"

	"github.com/cloudwego/gopkg/bufiox"
	"github.com/cloudwego/gopkg/gridbuf"
	"github.com/sysheap-dev/allocproxy/internal/logx"
	"github.com/sysheap-dev/allocproxy/internal/proxycache"
	"github.com/sysheap-dev/allocproxy/netx"
)

const (
	readChunkSize = 8 << 10
	dialTimeout   = 10 * time.Second
)

// Handler serves one accepted client connection to completion: parses
// one GET request, answers from cache on a hit, otherwise forwards to
// the origin named by the request-URI, streams the response back
// while opportunistically capturing it for the cache, and always
// closes cn before returning.
func Handler(cn netx.Conn, cache *proxycache.Cache, log *logx.Logger) {
	defer cn.Close()
	// Everything parsed out of the request is copied; the reader's
	// pooled buffers can go back to mcache once the handler is done.
	defer func() { _ = cn.Reader().Release(nil) }()

	_, uri, _, err := ParseRequestLine(cn.Reader())
	if err != nil {
		writeErr(cn, log, err, uri)
		return
	}

	clientHeaders, err := ReadHeaders(cn.Reader())
	if err != nil {
		writeErr(cn, log, err, uri)
		return
	}

	if cached, ok := cache.Lookup(uri); ok {
		log.Debugf("cache hit: %s", uri)
		if _, err := cn.Writer().WriteBinary(cached); err != nil {
			log.Warnf("write cached response for %s: %v", uri, err)
			return
		}
		if err := cn.Writer().Flush(); err != nil {
			log.Warnf("flush cached response for %s: %v", uri, err)
		}
		return
	}

	host, port, path, err := ParseURL(uri)
	if err != nil {
		writeErr(cn, log, err, uri)
		return
	}

	upstream, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), dialTimeout)
	if err != nil {
		log.Warnf("dial %s:%s: %v", host, port, err)
		_, _ = cn.Writer().WriteBinary(BadGateway("could not connect to " + host))
		_ = cn.Writer().Flush()
		return
	}
	upConn, err := netx.Wrap(upstream)
	if err != nil {
		upstream.Close()
		log.Warnf("wrap upstream conn: %v", err)
		return
	}
	defer upConn.Close()

	req := RewriteRequest(host, path, clientHeaders)
	if _, err := upConn.Writer().WriteBinary(req); err != nil {
		log.Warnf("write upstream request for %s: %v", uri, err)
		return
	}
	if err := upConn.Writer().Flush(); err != nil {
		log.Warnf("flush upstream request for %s: %v", uri, err)
		return
	}

	captured, exceeded, err := streamAndCapture(cn.Writer(), upConn, proxycache.MaxObjectBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		log.Warnf("stream response for %s: %v", uri, err)
		return
	}
	if exceeded {
		log.Debugf("response for %s exceeded cache object limit, served uncached", uri)
		return
	}
	if cache.Insert(uri, captured) {
		log.Debugf("cached %d bytes for %s", len(captured), uri)
	}
}

// streamAndCapture copies src to w chunk by chunk (using gridbuf-backed
// scratch buffers, never the default io.Copy allocation) while also
// appending each chunk to a private capture slice, until the capture
// would exceed maxCapture; past that point captured is permanently
// abandoned but streaming continues uninterrupted. src is read
// directly rather than through a bufiox.Reader: the HTTP/1.0 response
// body has no frame length, it ends only when the origin closes the
// connection, and bufiox's Next/ReadBinary both require knowing how
// many bytes to demand up front.
func streamAndCapture(w bufiox.Writer, src io.Reader, maxCapture int) (captured []byte, exceeded bool, err error) {
	wb := gridbuf.NewWriteBuffer()
	defer wb.Free()

	// One pooled buffer, reused for every read: each chunk is flushed to
	// the client and copied into the capture before the next Read
	// overwrites it.
	scratch := wb.NewBuffer(nil, readChunkSize)
	scratch = scratch[:cap(scratch)]
	for {
		n, rerr := src.Read(scratch)
		if n > 0 {
			chunk := scratch[:n]
			if _, werr := w.WriteBinary(chunk); werr != nil {
				return nil, exceeded, werr
			}
			// Flushed per chunk, not once at the end: bytes this size
			// trip bufiox's zero-copy writeDirect path and would
			// otherwise sit unsent until the whole response had been
			// read, defeating pass-through streaming.
			if werr := w.Flush(); werr != nil {
				return nil, exceeded, werr
			}
			if !exceeded {
				if len(captured)+n > maxCapture {
					exceeded = true
					captured = nil
				} else {
					captured = append(captured, chunk...)
				}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return nil, exceeded, rerr
		}
	}
	return captured, exceeded, nil
}

func writeErr(cn netx.Conn, log *logx.Logger, err error, uri string) {
	var page []byte
	switch {
	case errors.Is(err, ErrNotImplemented):
		page = NotImplemented("proxy does not support this method")
	case errors.Is(err, ErrNotHTTP), errors.Is(err, ErrMalformedURI),
		errors.Is(err, ErrMalformedRequestLine), errors.Is(err, ErrMalformedHeader),
		errors.Is(err, ErrLineTooLong):
		page = BadRequest("proxy could not parse the request")
	default:
		log.Debugf("client %s closed before a full request: %v", uri, err)
		return
	}
	log.Warnf("request error for %q: %v", uri, err)
	if _, werr := cn.Writer().WriteBinary(page); werr != nil {
		return
	}
	_ = cn.Writer().Flush()
}
