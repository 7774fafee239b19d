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

// Command allocproxy runs the caching HTTP/1.0 forward proxy.
//
// Usage:
//
//	allocproxy <port>
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sysheap-dev/allocproxy/internal/httpproxy"
	"github.com/sysheap-dev/allocproxy/internal/logx"
	"github.com/sysheap-dev/allocproxy/internal/proxycache"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", progName(args))
		return 1
	}
	port := args[1]

	// A client that resets its side of the connection mid-write would
	// otherwise kill the process with SIGPIPE; every write already
	// checks its error return, so the signal is simply ignored.
	signal.Ignore(syscall.SIGPIPE)

	log := logx.New("main")
	cache := proxycache.New(proxycache.MaxTotalBytes, proxycache.MaxObjectBytes)
	server := httpproxy.NewServer(":"+port, cache)

	if err := server.Serve(); err != nil {
		log.Errorf("serve: %v", err)
		return 1
	}
	return 0
}

func progName(args []string) string {
	if len(args) == 0 {
		return "allocproxy"
	}
	return args[0]
}
