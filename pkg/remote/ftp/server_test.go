// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ftp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/walteh/deployrc/pkg/config"
)

// 🧪 fakeServer speaks just enough FTP for one passive mode client per test
type fakeServer struct {
	ln net.Listener

	mu     sync.Mutex
	files  map[string][]byte
	dirs   map[string]bool
	denied map[string]bool

	// abortRetr sends the file then replies 426 instead of 226
	abortRetr bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	f := &fakeServer{
		ln:     ln,
		files:  map[string][]byte{},
		dirs:   map[string]bool{"/": true},
		denied: map[string]bool{},
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.handle(conn)
		}
	}()
	return f
}

func (f *fakeServer) profile() config.Profile {
	return config.Profile{
		Name:        "fake",
		Host:        "127.0.0.1",
		Port:        f.ln.Addr().(*net.TCPAddr).Port,
		Protocol:    config.ProtocolFTP,
		Credentials: config.Credentials{Username: "deploy", Password: "secret"},
	}
}

func (f *fakeServer) put(p string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[p] = content
	for d := path.Dir(p); d != "/"; d = path.Dir(d) {
		f.dirs[d] = true
	}
}

func (f *fakeServer) get(p string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[p]
	return b, ok
}

func (f *fakeServer) hasDir(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirs[p]
}

func (f *fakeServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(format string, args ...any) {
		fmt.Fprintf(conn, format+"\r\n", args...)
	}

	var pending chan net.Conn
	accept := func() net.Conn {
		if pending == nil {
			return nil
		}
		dc, ok := <-pending
		pending = nil
		if !ok {
			return nil
		}
		return dc
	}

	reply("220 ready")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimRight(line, "\r\n"), " ")

		switch strings.ToUpper(cmd) {
		case "USER":
			reply("230 logged in")
		case "TYPE":
			reply("200 type set")
		case "PWD":
			reply(`257 "/" is the current directory`)
		case "CWD":
			if f.hasDir(arg) {
				reply("250 directory changed")
			} else {
				reply("550 no such directory")
			}
		case "EPSV":
			dl, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				reply("425 cannot open data connection")
				continue
			}
			ch := make(chan net.Conn, 1)
			go func() {
				defer dl.Close()
				dc, err := dl.Accept()
				if err != nil {
					close(ch)
					return
				}
				ch <- dc
			}()
			pending = ch
			reply("229 Entering Extended Passive Mode (|||%d|)", dl.Addr().(*net.TCPAddr).Port)
		case "RETR":
			dc := accept()
			if dc == nil {
				reply("425 no data connection")
				continue
			}
			f.mu.Lock()
			content, ok := f.files[arg]
			denied := f.denied[arg]
			abort := f.abortRetr
			f.mu.Unlock()
			if !ok || denied {
				dc.Close()
				reply("550 file unavailable")
				continue
			}
			reply("150 opening data connection")
			_, _ = dc.Write(content)
			dc.Close()
			if abort {
				reply("426 Connection closed; transfer aborted")
			} else {
				reply("226 transfer complete")
			}
		case "STOR":
			dc := accept()
			if dc == nil {
				reply("425 no data connection")
				continue
			}
			reply("150 opening data connection")
			content, _ := io.ReadAll(dc)
			dc.Close()
			f.put(arg, content)
			reply("226 transfer complete")
		case "NLST":
			dc := accept()
			if dc == nil {
				reply("425 no data connection")
				continue
			}
			reply("150 opening data connection")
			f.mu.Lock()
			for p := range f.files {
				if path.Dir(p) == arg {
					fmt.Fprintf(dc, "%s\r\n", path.Base(p))
				}
			}
			f.mu.Unlock()
			dc.Close()
			reply("226 transfer complete")
		case "SIZE":
			if content, ok := f.get(arg); ok {
				reply("213 %d", len(content))
			} else {
				reply("550 file unavailable")
			}
		case "DELE":
			f.mu.Lock()
			_, ok := f.files[arg]
			delete(f.files, arg)
			f.mu.Unlock()
			if ok {
				reply("250 deleted")
			} else {
				reply("550 file unavailable")
			}
		case "MKD":
			f.mu.Lock()
			exists := f.dirs[arg]
			f.dirs[arg] = true
			f.mu.Unlock()
			if exists {
				reply("550 directory exists")
			} else {
				reply(`257 "%s" created`, arg)
			}
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 command not implemented")
		}
	}
}
