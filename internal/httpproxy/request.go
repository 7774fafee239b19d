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
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/gopkg/bufiox"
	"github.com/cloudwego/gopkg/unsafex"
)

const (
	maxLineSize = 8 << 10 // single header or request line, including CRLF

	userAgent      = "Mozilla/5.0 (X11; Linux x86_64; rv:10.0.3) Gecko/20120305 Firefox/10.0.3"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptEncoding = "gzip, deflate"
)

var (
	// ErrNotImplemented covers any method other than GET.
	ErrNotImplemented = errors.New("httpproxy: only GET is supported")
	// ErrMalformedRequestLine covers a request line that doesn't split
	// into exactly method, request-URI, version.
	ErrMalformedRequestLine = errors.New("httpproxy: malformed request line")
	// ErrMalformedHeader covers a header line without a ':' separator.
	ErrMalformedHeader = errors.New("httpproxy: malformed header line")
	// ErrLineTooLong is returned when a single line, including its
	// terminating CRLF, exceeds maxLineSize.
	ErrLineTooLong = errors.New("httpproxy: request line too long")
)

// mandatory names the headers RewriteRequest always emits itself;
// passthrough skips these so they are never duplicated.
var mandatory = map[string]bool{
	"Host":             true,
	"User-Agent":       true,
	"Accept":           true,
	"Accept-Encoding":  true,
	"Connection":       true,
	"Proxy-Connection": true,
}

// readLine consumes one CRLF-terminated line from r, demanding bytes
// one at a time. Demanding any more would deadlock against a client
// that has sent its whole request and is waiting for the response:
// bufiox's Next/Peek block until the full count arrives, and byte-wise
// reads still only hit the socket once per buffered fill. The returned
// line excludes the CRLF and is a private copy, safe to keep past the
// reader's next Release.
func readLine(r bufiox.Reader) ([]byte, error) {
	var line []byte
	for {
		b, err := r.Next(1)
		if err != nil {
			return nil, err
		}
		line = append(line, b[0])
		if len(line) > maxLineSize {
			return nil, ErrLineTooLong
		}
		if n := len(line); n >= 2 && line[n-2] == '\r' && line[n-1] == '\n' {
			return line[:n-2], nil
		}
	}
}

// ParseRequestLine reads and parses one "METHOD URI VERSION" line.
func ParseRequestLine(r bufiox.Reader) (method, uri, version string, err error) {
	line, err := readLine(r)
	if err != nil {
		return "", "", "", err
	}
	// line is a private copy never mutated again, so the string view and
	// the field substrings sliced out of it may alias it without a copy.
	fields := strings.Fields(unsafex.BinaryToString(line))
	if len(fields) != 3 {
		return "", "", "", ErrMalformedRequestLine
	}
	method, uri, version = fields[0], fields[1], fields[2]
	if method != "GET" {
		return method, uri, version, ErrNotImplemented
	}
	return method, uri, version, nil
}

// ReadHeaders reads header lines up to and including the terminating
// empty line.
func ReadHeaders(r bufiox.Reader) (http.Header, error) {
	hdr := make(http.Header)
	for {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			return hdr, nil
		}
		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			return nil, ErrMalformedHeader
		}
		key := strings.TrimSpace(unsafex.BinaryToString(line[:idx]))
		val := strings.TrimSpace(unsafex.BinaryToString(line[idx+1:]))
		if key == "" {
			return nil, ErrMalformedHeader
		}
		hdr.Add(key, val)
	}
}

// RewriteRequest builds the HTTP/1.0 request line and header block sent
// upstream: path becomes the request target, version is pinned to
// HTTP/1.0, and the six mandatory headers are emitted before whatever
// the client sent, minus Host's value which the client header
// overrides host with when present.
func RewriteRequest(host, path string, clientHeaders http.Header) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "GET %s HTTP/1.0\r\n", path)

	hostHeader := host
	if v := clientHeaders.Get("Host"); v != "" {
		hostHeader = v
	}
	fmt.Fprintf(&b, "Host: %s\r\n", hostHeader)
	fmt.Fprintf(&b, "User-Agent: %s\r\n", userAgent)
	fmt.Fprintf(&b, "Accept: %s\r\n", acceptHeader)
	fmt.Fprintf(&b, "Accept-Encoding: %s\r\n", acceptEncoding)
	b.WriteString("Connection: close\r\n")
	b.WriteString("Proxy-Connection: close\r\n")

	for k, vs := range clientHeaders {
		if mandatory[k] {
			continue
		}
		for _, v := range vs {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	b.WriteString("\r\n")
	return b.Bytes()
}
