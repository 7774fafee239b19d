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
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorPageHeadersMatchBodyLength(t *testing.T) {
	page := ErrorPage(400, "Bad Request", "proxy could not parse the request")
	s := string(page)

	headEnd := strings.Index(s, "\r\n\r\n")
	require.GreaterOrEqual(t, headEnd, 0)
	head := s[:headEnd]
	body := s[headEnd+4:]

	require.True(t, strings.HasPrefix(head, "HTTP/1.0 400 Bad Request\r\n"))
	require.Contains(t, head, "Content-type: text/html\r\n")

	idx := strings.Index(head, "Content-length: ")
	require.GreaterOrEqual(t, idx, 0)
	lenField := head[idx+len("Content-length: "):]
	n, err := strconv.Atoi(lenField)
	require.NoError(t, err)
	require.Equal(t, len(body), n)
	require.Contains(t, body, proxyName)
}

func TestBadGatewayAndNotImplementedUseCorrectCodes(t *testing.T) {
	require.Contains(t, string(BadGateway("x")), "HTTP/1.0 502 Bad Gateway")
	require.Contains(t, string(NotImplemented("x")), "HTTP/1.0 501 Not Implemented")
}
