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

// Package goja provides a <javascript> template tag backed by Goja,
// which is a Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/match"
	"github.com/Comcast/aiml/template"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// TagName is the tag that Handlers registers.
const TagName = "javascript"

// Interpreter runs the content of <javascript> elements.
type Interpreter struct {

	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	// LibraryProvider resolves names given in a "requires"
	// attribute.  DefaultLibraryProvider is used if this
	// provider is nil.
	LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)

	Logger *zap.Logger
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		Logger: zap.NewNop(),
	}
}

// Handlers returns the tag registration for this Interpreter, suitable
// for template.Standard.
func Handlers(i *Interpreter) map[string]template.Handler {
	return map[string]template.Handler{
		TagName: i.Handle,
	}
}

// ProvideLibrary resolves the library name into source.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a provider that supports names that
// are URLs with protocols of "file", "http", and "https".  File names
// are relative to the given directory.
func MakeFileLibraryProvider(dir string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			filename := filepath.Clean("/" + parts[1])
			bs, err := os.ReadFile(filepath.Join(dir, filename))
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			req, err := http.NewRequestWithContext(ctx, "GET", name, nil)
			if err != nil {
				return "", err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("library fetch status %s %d", resp.Status, resp.StatusCode)
			}
			bs, err := io.ReadAll(resp.Body)
			if err != nil {
				return "", err
			}
			return string(bs), nil
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

func MakeMapLibraryProvider(srcs map[string]string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Compile prepends the required libraries to the code and compiles
// the result.
//
// This method can block if the interpreter's library provider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, code string, libs []string) (*goja.Program, error) {
	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	code = libsSrc + wrapSrc(code)

	p, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}
	return p, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

func str(o *goja.Runtime, x interface{}) string {
	s, is := export(x).(string)
	if !is {
		protest(o, "not a string")
	}
	return s
}

// Handle is the template.Handler for <javascript>.
//
// The element's evaluated content is the code, which should
// `return` the tag's value.  An optional "requires" attribute lists
// libraries (comma-separated) to load first.
func (i *Interpreter) Handle(ctx context.Context, in *template.Interpreter, env *template.Env, e *template.Element) (string, error) {
	code, err := in.EvaluateAll(ctx, e.Children, env)
	if err != nil {
		return "", err
	}
	var libs []string
	if s, have := e.Attr("requires"); have {
		for _, lib := range strings.Split(s, ",") {
			if lib = strings.TrimSpace(lib); lib != "" {
				libs = append(libs, lib)
			}
		}
	}

	p, err := i.Compile(ctx, code, libs)
	if err != nil {
		return "", &template.TemplateError{Tag: e.Name, Reason: err.Error()}
	}

	x, err := i.Exec(ctx, in, env, p)
	if err != nil {
		if err == Interrupted || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &template.TemplateError{Tag: e.Name, Reason: err.Error()}
	}
	return render(x)
}

// render turns a script's result into text.
func render(x interface{}) (string, error) {
	switch vv := x.(type) {
	case nil:
		return "", nil
	case string:
		return vv, nil
	case int64, float64, bool:
		return fmt.Sprint(vv), nil
	default:
		js, err := json.Marshal(&vv)
		if err != nil {
			return "", err
		}
		return string(js), nil
	}
}

// Exec runs the program.
//
// The following properties are available from the runtime at _.
//
//	bot, user, input, that, topic: the conversation context.
//	star(n): the n-th (1-based) pattern capture.
//	get(name), set(name, value): predicates.
//	property(name): a bot property.
//	srai(s): respond to s as input.
//	match(pattern, input): wildcard captures or null.
//
// Some useful utilities:
//
//	gensym(): generate a random string.
//	esc(s): URL query-escape the given string.
//	cronNext(expr): the next time for the cron expression.
//	log(x): log x as JSON.
//
// For testing only:
//
//	sleep(ms): sleep for the given number of milliseconds.
//
// The Testing flag must be set to see sleep().
func (i *Interpreter) Exec(ctx context.Context, in *template.Interpreter, env *template.Env, p *goja.Program) (interface{}, error) {
	o := goja.New()

	if env == nil {
		env = &template.Env{}
	}

	scope := map[string]interface{}{
		"ctx":   ctx,
		"bot":   env.BotID,
		"user":  env.UserID,
		"input": env.Input,
		"that":  env.That,
		"topic": env.Topic,
	}
	o.Set("_", scope)

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	scope["star"] = func(n interface{}) interface{} {
		k, is := export(n).(int64)
		if !is {
			k = 1
		}
		if env.Match == nil {
			return ""
		}
		return core.Star(env.Match.Stars, int(k))
	}

	scope["get"] = func(name interface{}) interface{} {
		if in == nil || in.Predicates == nil {
			protest(o, "no predicates")
		}
		v, err := in.Predicates.Get(ctx, str(o, name), env.UserID, env.BotID)
		if err != nil {
			protest(o, err.Error())
		}
		return v
	}

	scope["set"] = func(name, value interface{}) interface{} {
		if in == nil || in.Predicates == nil {
			protest(o, "no predicates")
		}
		v := fmt.Sprint(export(value))
		if err := in.Predicates.Set(ctx, str(o, name), env.UserID, env.BotID, v); err != nil {
			protest(o, err.Error())
		}
		return v
	}

	scope["property"] = func(name interface{}) interface{} {
		if in == nil || in.Properties == nil {
			return ""
		}
		v, _ := in.Properties.Property(env.BotID, str(o, name))
		return v
	}

	scope["srai"] = func(input interface{}) interface{} {
		if in == nil {
			protest(o, "no interpreter")
		}
		s, err := in.Respond(ctx, str(o, input), env)
		if err != nil {
			protest(o, err.Error())
		}
		return s
	}

	scope["match"] = func(pattern, input interface{}) interface{} {
		stars, ok := match.Match(strings.ToUpper(str(o, pattern)), match.Normalize(str(o, input)))
		if !ok {
			return nil
		}
		return stars
	}

	scope["gensym"] = func() interface{} {
		return core.Gensym(32)
	}

	scope["cronNext"] = func(x interface{}) interface{} {
		c, err := cronexpr.Parse(str(o, x))
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	scope["esc"] = func(x interface{}) interface{} {
		return url.QueryEscape(str(o, x))
	}

	scope["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			i.Logger.Warn("javascript log", zap.Error(err))
		} else {
			i.Logger.Info("javascript log", zap.String("bot", env.BotID), zap.ByteString("value", js))
		}
		return x
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If Exec calls cancel() after RunProgram returns, then
		// we'll never see this InterruptedMessage, which is the
		// behavior we want.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}
