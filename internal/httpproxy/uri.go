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
	"strings"
)

const defaultPort = "80"

var (
	// ErrNotHTTP is returned for any absolute-URI not starting with
	// "http://" (https, ftp, relative paths, etc).
	ErrNotHTTP = errors.New("httpproxy: only http:// request-URIs are supported")
	// ErrMalformedURI covers every other grammar violation.
	ErrMalformedURI = errors.New("httpproxy: malformed request-URI")
)

// ParseURL splits an absolute request-URI of the form
// http://host[:port]/path into its host, port, and path. host is
// everything up to the first ':' or '/'; port is the maximal decimal
// run immediately following ':' and defaults to "80" when absent; path
// defaults to "/" when absent. A request-URI without the "http://"
// prefix is ErrNotHTTP; any other grammar violation is ErrMalformedURI.
func ParseURL(raw string) (host, port, path string, err error) {
	const scheme = "http://"
	if !strings.HasPrefix(raw, scheme) {
		return "", "", "", ErrNotHTTP
	}
	rest := raw[len(scheme):]
	if rest == "" {
		return "", "", "", ErrMalformedURI
	}

	hostport, path := splitPath(rest)
	if hostport == "" {
		return "", "", "", ErrMalformedURI
	}

	host, port, err = splitHostPort(hostport)
	if err != nil {
		return "", "", "", err
	}
	return host, port, path, nil
}

func splitPath(rest string) (hostport, path string) {
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i], rest[i:]
	}
	return rest, "/"
}

func splitHostPort(hostport string) (host, port string, err error) {
	colon := strings.IndexByte(hostport, ':')
	if colon < 0 {
		if hostport == "" {
			return "", "", ErrMalformedURI
		}
		return hostport, defaultPort, nil
	}

	host = hostport[:colon]
	portPart := hostport[colon+1:]
	if host == "" || portPart == "" || !isDecimal(portPart) {
		return "", "", ErrMalformedURI
	}
	return host, portPart, nil
}

func isDecimal(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
