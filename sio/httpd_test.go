package sio

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestHTTPD(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e, _ := testEngine(t)
	c := NewConversation(e.Interpreter, zaptest.NewLogger(t))

	s := NewHTTPD("", "alice")
	s.Logger = zaptest.NewLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- Run(ctx, c, s)
	}()

	ts := httptest.NewServer(s.Handler())

	{
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatal(resp.Status)
		}
	}

	{
		body := bytes.NewBufferString(`{"user":"u1","input":"hello"}`)
		resp, err := http.Post(ts.URL+"/talk", "application/json", body)
		if err != nil {
			t.Fatal(err)
		}
		var r Result
		err = json.NewDecoder(resp.Body).Decode(&r)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if r.Response != "Hi there. What is your name?" || r.UserID != "u1" || r.BotID != "alice" || r.ID == "" {
			t.Fatal(JS(r))
		}
	}

	{
		// Concurrent clients reusing one request id.
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				body := strings.NewReader(`{"id":"same","user":"` + user + `","input":"hello"}`)
				resp, err := http.Post(ts.URL+"/talk", "application/json", body)
				if err != nil {
					t.Error(err)
					return
				}
				defer resp.Body.Close()
				var r Result
				if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
					t.Error(err)
					return
				}
				if r.ID != "same" || r.UserID != user || r.Response != "Hi there. What is your name?" {
					t.Errorf("%s: %s", user, JS(r))
				}
			}(fmt.Sprintf("c%d", i))
		}
		wg.Wait()
	}

	{
		resp, err := http.Post(ts.URL+"/talk", "application/json", strings.NewReader("not json"))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatal(resp.Status)
		}
	}

	{
		u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(u, nil)
		if err != nil {
			t.Fatal(err)
		}

		var first, second Result
		if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
			t.Fatal(err)
		}
		if err := conn.ReadJSON(&first); err != nil {
			t.Fatal(err)
		}
		if err := conn.WriteJSON(&Request{Text: "my name is Eve"}); err != nil {
			t.Fatal(err)
		}
		if err := conn.ReadJSON(&second); err != nil {
			t.Fatal(err)
		}
		conn.Close()

		if first.UserID == "" || first.UserID != second.UserID {
			t.Fatalf("session users %q %q", first.UserID, second.UserID)
		}
		if second.Response != "Nice to meet you, EVE." {
			t.Fatal(JS(second))
		}
	}

	ts.Close()
	cancel()
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
}
