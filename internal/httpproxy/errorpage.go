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

import "fmt"

const proxyName = "allocproxy"

// ErrorPage renders a minimal HTTP/1.0 error response: status line,
// Content-type and Content-length headers, terminating blank line, and
// an HTML body naming the proxy and the long-form message.
func ErrorPage(code int, shortMsg, longMsg string) []byte {
	body := fmt.Sprintf(
		"<html><title>%s Error</title><body bgcolor=\"ffffff\">\r\n"+
			"%d %s\r\n<p>%s: %s\r\n<hr><em>The %s proxy server</em>\r\n</body></html>\r\n",
		shortMsg, code, shortMsg, longMsg, shortMsg, proxyName,
	)
	head := fmt.Sprintf(
		"HTTP/1.0 %d %s\r\nContent-type: text/html\r\nContent-length: %d\r\n\r\n",
		code, shortMsg, len(body),
	)
	return append([]byte(head), body...)
}

// Common error pages the handler reaches for.
func BadRequest(longMsg string) []byte     { return ErrorPage(400, "Bad Request", longMsg) }
func NotImplemented(longMsg string) []byte { return ErrorPage(501, "Not Implemented", longMsg) }
func BadGateway(longMsg string) []byte     { return ErrorPage(502, "Bad Gateway", longMsg) }
