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
	"time"

	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"
)

// Scheduler runs a task on a cron schedule.
type Scheduler struct {
	Expr *cronexpr.Expression
	Task func(ctx context.Context) error

	Logger *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewScheduler parses the cron expression, which can have five,
// six, or seven fields.
func NewScheduler(expr string, task func(ctx context.Context) error) (*Scheduler, error) {
	x, err := cronexpr.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		Expr:   x,
		Task:   task,
		Logger: zap.NewNop(),
		Now:    time.Now,
	}, nil
}

// Next gives the next time the task should run after t.  The zero
// time means never.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.Expr.Next(t)
}

// Run runs the task at each scheduled time until the context is
// done.  Task errors are logged.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.Now()
		next := s.Next(now)
		if next.IsZero() {
			s.Logger.Info("schedule exhausted")
			return nil
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		s.Logger.Debug("scheduled task", zap.Time("at", next))
		if err := s.Task(ctx); err != nil {
			s.Logger.Error("scheduled task", zap.Error(err))
		}
	}
}
