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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURLHostOnly(t *testing.T) {
	host, port, path, err := ParseURL("http://example.com")
	require.NoError(t, err)
	require.Equal(t, "example.com", host)
	require.Equal(t, "80", port)
	require.Equal(t, "/", path)
}

func TestParseURLHostPortPath(t *testing.T) {
	host, port, path, err := ParseURL("http://example.com:8080/a/b?q=1")
	require.NoError(t, err)
	require.Equal(t, "example.com", host)
	require.Equal(t, "8080", port)
	require.Equal(t, "/a/b?q=1", path)
}

func TestParseURLNonHTTPScheme(t *testing.T) {
	_, _, _, err := ParseURL("https://example.com/")
	require.ErrorIs(t, err, ErrNotHTTP)
}

func TestParseURLMissingHost(t *testing.T) {
	_, _, _, err := ParseURL("http:///a")
	require.ErrorIs(t, err, ErrMalformedURI)
}

func TestParseURLNonDecimalPort(t *testing.T) {
	_, _, _, err := ParseURL("http://example.com:abc/a")
	require.ErrorIs(t, err, ErrMalformedURI)
}

func TestParseURLEmptyPort(t *testing.T) {
	_, _, _, err := ParseURL("http://example.com:/a")
	require.ErrorIs(t, err, ErrMalformedURI)
}
