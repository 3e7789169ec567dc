/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Comcast/aiml/template"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Admin is what the Shell needs to manage bots and their rules.
type Admin interface {
	Load(ctx context.Context, location, botId string) (int, error)
	Unload(ctx context.Context, location, botId string) (int, error)
	Files(botId string) []string
	BotIDs() []string
}

var shellHelp = []string{
	"All shell commands are preceded by a forward slash (/).",
	"The commands available are:",
	"/help             - prints this help",
	"/exit             - shuts down the bot server",
	"/load filename    - loads/reloads given filename for active bot",
	"/unload filename  - unloads given filename for active bot",
	"/bots             - lists loaded bots",
	"/talkto botid     - switches conversation to given bot",
	"/who              - prints the id of the current bot",
	"/files            - lists the files loaded by the current bot",
}

// Shell is a Couplings for an interactive console.  Lines that start
// with "/" are shell commands.  Other lines go to the current bot.
type Shell struct {
	In  io.Reader
	Out io.Writer

	Admin      Admin
	Properties template.Properties

	// BotID is the current bot.  The first bot is used if empty.
	BotID string

	// UserID identifies the console user.  Defaults to the host
	// name.
	UserID string

	// ConnectString, if not empty, is sent to a bot when the
	// Shell starts talking to it.
	ConnectString string

	Logger *zap.Logger

	WG sync.WaitGroup

	in      chan *Request
	out     chan *Result
	done    chan bool
	replied chan bool
}

// NewShell makes a Shell on stdin and stdout.
func NewShell(admin Admin, props template.Properties) *Shell {
	user, err := os.Hostname()
	if err != nil || user == "" {
		user = "localhost"
	}
	return &Shell{
		In:            os.Stdin,
		Out:           os.Stdout,
		Admin:         admin,
		Properties:    props,
		UserID:        user,
		ConnectString: "CONNECT",
		Logger:        zap.NewNop(),
	}
}

// Start does nothing.
func (s *Shell) Start(ctx context.Context) error {
	return nil
}

// Stop waits until IO is complete or was terminated via its context.
func (s *Shell) Stop(ctx context.Context) error {
	s.WG.Wait()
	return nil
}

func (s *Shell) println(args ...interface{}) {
	fmt.Fprintln(s.Out, args...)
}

func (s *Shell) botName() string {
	if s.Properties != nil {
		if name, have := s.Properties.Property(s.BotID, "name"); have && name != "" {
			return name
		}
	}
	return s.BotID
}

// IO returns channels for reading from In and writing to Out.
func (s *Shell) IO(ctx context.Context) (chan *Request, chan *Result, chan bool, error) {
	s.in = make(chan *Request)
	s.out = make(chan *Result)
	s.done = make(chan bool)
	s.replied = make(chan bool)

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		defer close(s.done)
		s.inLoop(ctx)
	}()

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case r := <-s.out:
				if r == nil {
					return
				}
				for _, line := range strings.Split(r.Response, "\n") {
					s.println(s.botName() + "> " + line)
				}
				select {
				case <-ctx.Done():
					return
				case s.replied <- true:
				}
			}
		}
	}()

	return s.in, s.out, s.done, nil
}

// talk sends the text to the current bot and waits for the reply to
// be printed.
func (s *Shell) talk(ctx context.Context, text string) bool {
	req := &Request{
		ID:     uuid.NewString(),
		BotID:  s.BotID,
		UserID: s.UserID,
		Text:   text,
	}
	select {
	case <-ctx.Done():
		return false
	case s.in <- req:
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.replied:
	}
	return true
}

func (s *Shell) inLoop(ctx context.Context) {
	s.println(`Interactive shell: type "/exit" to shut down; "/help" for help.`)
	if s.BotID == "" {
		if ids := s.Admin.BotIDs(); 0 < len(ids) {
			s.BotID = ids[0]
		}
	}
	if s.BotID == "" {
		s.println("No bot to talk to!")
		return
	}
	if s.ConnectString != "" && !s.talk(ctx, s.ConnectString) {
		return
	}

	lines := bufio.NewReader(s.In)
	for {
		fmt.Fprintf(s.Out, "[%s] %s> ", s.botName(), s.UserID)
		line, err := lines.ReadString('\n')
		if err != nil && err != io.EOF {
			s.Logger.Error("shell input", zap.Error(err))
			return
		}
		eof := err == io.EOF
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "/"):
			if !s.Command(ctx, line) {
				return
			}
		case line != "":
			if !s.talk(ctx, line) {
				return
			}
		}
		if eof {
			return
		}
	}
}

// Command executes a shell command.  Returns false if the shell
// should exit.
func (s *Shell) Command(ctx context.Context, line string) bool {
	cmd, arg := line, ""
	if i := strings.IndexByte(line, ' '); 0 <= i {
		cmd, arg = line[:i], strings.TrimSpace(line[i+1:])
	}
	switch strings.ToLower(cmd) {
	case "/exit":
		s.println("Exiting at user request.")
		return false
	case "/help":
		for _, line := range shellHelp {
			s.println(line)
		}
	case "/load":
		if arg == "" {
			s.println("You must specify a filename.")
			break
		}
		location := localPath(arg)
		n, err := s.Admin.Load(ctx, location, s.BotID)
		if err != nil {
			s.println("Error: " + err.Error())
			break
		}
		s.println(fmt.Sprintf("%d categories loaded from %q.", n, location))
	case "/unload":
		if arg == "" {
			s.println("You must specify a filename.")
			break
		}
		n, err := s.Admin.Unload(ctx, localPath(arg), s.BotID)
		if err != nil {
			s.println("Error: " + err.Error())
			break
		}
		s.println(fmt.Sprintf("%d categories unloaded.", n))
	case "/bots":
		s.println("Active bots: " + strings.Join(s.Admin.BotIDs(), ", "))
	case "/talkto":
		if arg == "" {
			s.println("You must specify a bot id.")
			break
		}
		known := false
		for _, id := range s.Admin.BotIDs() {
			if id == arg {
				known = true
			}
		}
		if !known {
			s.println("That bot id is not known. Check your startup files.")
			break
		}
		s.BotID = arg
		s.println(fmt.Sprintf("Switched to bot %q (name: %q).", arg, s.botName()))
		if s.ConnectString != "" {
			return s.talk(ctx, s.ConnectString)
		}
	case "/who":
		s.println(fmt.Sprintf("You are talking to %q.", s.BotID))
	case "/files":
		files := s.Admin.Files(s.BotID)
		switch len(files) {
		case 0:
			s.println(fmt.Sprintf("No files loaded by %q.", s.BotID))
		case 1:
			s.println(fmt.Sprintf("1 file loaded by %q:", s.BotID))
		default:
			s.println(fmt.Sprintf("%d files loaded by %q:", len(files), s.BotID))
		}
		for _, f := range files {
			s.println(f)
		}
	default:
		s.println(`Unknown command.  Type "/help" for help.`)
	}
	return true
}

// localPath makes file names absolute so that loading and unloading
// agree on a source's name.
func localPath(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	if abs, err := filepath.Abs(location); err == nil {
		return abs
	}
	return location
}
