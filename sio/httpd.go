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
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HTTPD is a Couplings that serves conversations over HTTP and
// WebSockets:
//
//	POST /talk    {"bot":"alice","user":"u1","input":"hello"}
//	GET  /ws      one JSON request per text message
//	GET  /health
//
// Requests without a user get an anonymous one.  A WebSocket
// connection keeps its anonymous user for its lifetime.
type HTTPD struct {
	// Addr is the listen address.  Nothing is served if it's
	// empty, but Handler still works.
	Addr string

	// BotID is used for requests that don't name a bot.
	BotID string

	// Timeout bounds the wait for a result.
	Timeout time.Duration

	Logger *zap.Logger

	router   *chi.Mux
	server   *http.Server
	upgrader websocket.Upgrader

	in   chan *Request
	out  chan *Result
	done chan bool

	sync.Mutex
	pending map[string]chan *Result

	WG sync.WaitGroup
}

func NewHTTPD(addr, botId string) *HTTPD {
	s := &HTTPD{
		Addr:    addr,
		BotID:   botId,
		Timeout: 10 * time.Second,
		Logger:  zap.NewNop(),
		in:      make(chan *Request),
		out:     make(chan *Result),
		done:    make(chan bool),
		pending: make(map[string]chan *Result),
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/health", s.health)
	router.Post("/talk", s.talk)
	router.Get("/ws", s.ws)
	s.router = router

	return s
}

// Handler returns the router.
func (s *HTTPD) Handler() http.Handler {
	return s.router
}

// Start starts listening if there's an Addr.
func (s *HTTPD) Start(ctx context.Context) error {
	if s.Addr == "" {
		return nil
	}
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Handler: s.router,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		s.Logger.Info("HTTPD starting", zap.String("addr", l.Addr().String()))
		if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("HTTPD", zap.Error(err))
		}
	}()
	return nil
}

// IO returns the request and result channels and starts routing
// results back to their waiting requests.
func (s *HTTPD) IO(ctx context.Context) (chan *Request, chan *Result, chan bool, error) {
	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-s.out:
				if r == nil {
					return
				}
				s.Lock()
				c, have := s.pending[r.ID]
				delete(s.pending, r.ID)
				s.Unlock()
				if !have {
					s.Logger.Warn("orphaned result", zap.String("id", r.ID))
					continue
				}
				c <- r
			}
		}
	}()
	return s.in, s.out, s.done, nil
}

// Stop shuts down the server.
func (s *HTTPD) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err = s.server.Shutdown(ctx)
	}
	s.WG.Wait()
	return err
}

// submit hands the request to the conversation loop and waits for
// its result.
func (s *HTTPD) submit(ctx context.Context, req *Request) (*Result, error) {
	// Results are routed by a server ID.  Clients may reuse theirs.
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	req.ID = uuid.NewString()
	defer func() { req.ID = id }()

	if req.BotID == "" {
		req.BotID = s.BotID
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	c := make(chan *Result, 1)
	s.Lock()
	s.pending[req.ID] = c
	s.Unlock()

	forget := func() {
		s.Lock()
		delete(s.pending, req.ID)
		s.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	case s.in <- req:
	}

	select {
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	case r := <-c:
		r.ID = id
		return r, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, x interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(x)
}

func (s *HTTPD) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPD) talk(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	result, err := s.submit(r.Context(), &req)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPD) ws(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	user := uuid.NewString()
	s.Logger.Info("ws session", zap.String("user", user))

	for {
		_, bs, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if len(bs) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(bs, &req); err != nil {
			// Plain text is input for the default bot.
			req = Request{Text: string(bs)}
		}
		if req.UserID == "" {
			req.UserID = user
		}
		result, err := s.submit(r.Context(), &req)
		if err != nil {
			result = &Result{ID: req.ID, Err: err.Error()}
		}
		if err := conn.WriteJSON(result); err != nil {
			return
		}
	}
}
