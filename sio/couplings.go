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

	"go.uber.org/zap"
)

// Request is one piece of user input for a bot.
type Request struct {
	ID     string `json:"id,omitempty"`
	BotID  string `json:"bot,omitempty"`
	UserID string `json:"user,omitempty"`
	Text   string `json:"input"`
}

// Result is the answer to a Request.
type Result struct {
	Request  *Request `json:"-"`
	ID       string   `json:"id,omitempty"`
	BotID    string   `json:"bot,omitempty"`
	UserID   string   `json:"user,omitempty"`
	Response string   `json:"response"`
	Matched  bool     `json:"matched"`
	Err      string   `json:"error,omitempty"`
}

// Couplings provide channels for requests and their results.
//
// For example, an implementation could couple a conversation to an
// MQTT broker.
type Couplings interface {
	// Start initializes the Couplings.
	Start(context.Context) error

	// IO returns the request and result channels.  The third
	// channel is closed when the Couplings have no more input.
	IO(context.Context) (chan *Request, chan *Result, chan bool, error)

	// Stop shuts down the Couplings.
	Stop(context.Context) error
}

// Answer runs the Request through the Conversation.
func (c *Conversation) Answer(ctx context.Context, req *Request) *Result {
	s, err := c.Respond(ctx, req.BotID, req.UserID, req.Text)
	r := &Result{
		Request:  req,
		ID:       req.ID,
		BotID:    req.BotID,
		UserID:   req.UserID,
		Response: Render(s, err),
		Matched:  err == nil,
	}
	if err != nil {
		r.Err = err.Error()
	}
	return r
}

// Run starts the Couplings and answers their requests until the
// context is done or the input is exhausted.  The Couplings are
// stopped before Run returns.
func Run(ctx context.Context, c *Conversation, cs Couplings) error {
	if err := cs.Start(ctx); err != nil {
		return err
	}
	in, out, done, err := cs.IO(ctx)
	if err != nil {
		return err
	}

	c.Logger.Info("conversation loop starting")
LOOP:
	for {
		select {
		case <-done:
			c.Logger.Info("conversation loop shutting down (input done)")
			break LOOP
		case <-ctx.Done():
			c.Logger.Info("conversation loop shutting down (ctx.Done)")
			break LOOP
		case req := <-in:
			if req == nil {
				break LOOP
			}
			r := c.Answer(ctx, req)
			c.Logger.Debug("answered", zap.String("request", JShort(req)), zap.String("result", JShort(r)))
			select {
			case <-ctx.Done():
			case out <- r:
			}
		}
	}

	return cs.Stop(context.Background())
}
