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
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/gopkg/bufiox"
)

func TestParseRequestLineGet(t *testing.T) {
	r := bufiox.NewBytesReader([]byte("GET http://example.com/ HTTP/1.0\r\n"))
	method, uri, version, err := ParseRequestLine(r)
	require.NoError(t, err)
	require.Equal(t, "GET", method)
	require.Equal(t, "http://example.com/", uri)
	require.Equal(t, "HTTP/1.0", version)
}

func TestParseRequestLineRejectsNonGET(t *testing.T) {
	r := bufiox.NewBytesReader([]byte("POST http://example.com/ HTTP/1.0\r\n"))
	_, _, _, err := ParseRequestLine(r)
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestParseRequestLineMalformed(t *testing.T) {
	r := bufiox.NewBytesReader([]byte("GET\r\n"))
	_, _, _, err := ParseRequestLine(r)
	require.ErrorIs(t, err, ErrMalformedRequestLine)
}

func TestParseRequestLineTooLong(t *testing.T) {
	r := bufiox.NewBytesReader([]byte(strings.Repeat("a", maxLineSize+16)))
	_, _, _, err := ParseRequestLine(r)
	require.ErrorIs(t, err, ErrLineTooLong)
}

func TestReadHeaders(t *testing.T) {
	raw := "Host: example.com\r\nUser-Agent: test\r\nX-Custom: yes\r\n\r\n"
	r := bufiox.NewBytesReader([]byte(raw))
	hdr, err := ReadHeaders(r)
	require.NoError(t, err)
	require.Equal(t, "example.com", hdr.Get("Host"))
	require.Equal(t, "test", hdr.Get("User-Agent"))
	require.Equal(t, "yes", hdr.Get("X-Custom"))
}

func TestReadHeadersMalformed(t *testing.T) {
	r := bufiox.NewBytesReader([]byte("not-a-header-line\r\n\r\n"))
	_, err := ReadHeaders(r)
	require.ErrorIs(t, err, ErrMalformedHeader)
}

func TestRewriteRequestUsesClientHost(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Host", "client-supplied.example")
	hdr.Set("X-Custom", "yes")

	out := string(RewriteRequest("example.com", "/a/b", hdr))
	require.Contains(t, out, "GET /a/b HTTP/1.0\r\n")
	require.Contains(t, out, "Host: client-supplied.example\r\n")
	require.Contains(t, out, "User-Agent: "+userAgent+"\r\n")
	require.Contains(t, out, "Accept: "+acceptHeader+"\r\n")
	require.Contains(t, out, "Accept-Encoding: "+acceptEncoding+"\r\n")
	require.Contains(t, out, "Connection: close\r\n")
	require.Contains(t, out, "Proxy-Connection: close\r\n")
	require.Contains(t, out, "X-Custom: yes\r\n")
	require.True(t, strings.HasSuffix(out, "\r\n\r\n"))
}

func TestRewriteRequestDefaultsHostFromURI(t *testing.T) {
	out := string(RewriteRequest("example.com", "/", http.Header{}))
	require.Contains(t, out, "Host: example.com\r\n")
}
