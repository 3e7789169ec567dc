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

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/graph"
	"github.com/Comcast/aiml/match"
	"github.com/Comcast/aiml/reader"
	"github.com/Comcast/aiml/template"
	"github.com/Comcast/aiml/tools"

	"github.com/spf13/cobra"
)

var (
	format string
	title  string
	strict bool
)

var checkCmd = &cobra.Command{
	Use:   "check rule-files...",
	Short: "Report problems in rule files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var dumpCmd = &cobra.Command{
	Use:   "dump rule-files...",
	Short: "Write the categories in rule files in another form",
	Long: `Formats:

  aiml      the categories as a single rule file
  yaml      the categories grouped by topic
  html      a page describing the categories
  dot       a Graphviz graph of <srai> links
  mermaid   a Mermaid flowchart of <srai> links
  analysis  a YAML summary of the rule set`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDump,
}

func init() {
	checkCmd.Flags().BoolVar(&strict, "strict", false, "Warn about elements that aren't part of the rule language")
	dumpCmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format")
	dumpCmd.Flags().StringVar(&title, "title", "Rules", "Title for -f html")
}

// read extracts the categories from the files.  Diagnostics go to
// the given sink.
func read(ctx context.Context, files []string, d core.Diagnostics) ([]core.Category, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}
	policy := cfg.Validation
	if policy == nil {
		policy = match.DefaultPolicy()
	}

	loader := graph.NewLoader(nil)
	var cats core.Categories
	for _, location := range files {
		rc, source, err := loader.Open(ctx, location)
		if err != nil {
			return nil, err
		}
		opts := []reader.Option{
			reader.WithDiagnostics(d),
			reader.WithPolicy(policy),
		}
		if strict || cfg.Reader.WarnNonAIML {
			opts = append(opts, reader.WarnNonAIML(reader.StructuralNames...))
		}
		_, err = reader.New(source, &cats, opts...).Read(ctx, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	}
	return cats, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	diags := core.NewCollector()
	cats, err := read(ctx, args, diags)
	if err != nil {
		return err
	}
	for _, d := range diags.All() {
		fmt.Fprintln(out, d)
	}

	a, err := tools.Analyze(ctx, cats, template.Standard())
	if err != nil {
		return err
	}
	for _, dup := range a.Duplicates {
		fmt.Fprintf(out, "duplicate: %s\n", dup)
	}
	for _, text := range a.Unresolved {
		fmt.Fprintf(out, "unresolved srai: %s\n", text)
	}
	for _, tag := range a.UnknownTags {
		fmt.Fprintf(out, "unknown tag: %s\n", tag)
	}
	for _, problem := range a.Errors {
		fmt.Fprintf(out, "error: %s\n", problem)
	}
	fmt.Fprintf(out, "%d categories\n", len(cats))

	if n := diags.Count(core.Error) + len(a.Errors); 0 < n {
		return fmt.Errorf("%d error(s)", n)
	}
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cats, err := read(ctx, args, core.NewZapDiagnostics(logger))
	if err != nil {
		return err
	}
	return dump(ctx, cats, cmd.OutOrStdout())
}

func dump(ctx context.Context, cats []core.Category, out io.Writer) error {
	switch format {
	case "aiml", "xml":
		return reader.Write(out, cats)
	case "yaml":
		return tools.WriteYAML(cats, out)
	case "html":
		return tools.RenderPage(title, cats, out, nil)
	case "dot":
		return tools.Dot(ctx, cats, out)
	case "mermaid":
		return tools.Mermaid(ctx, cats, out, nil)
	case "analysis":
		a, err := tools.Analyze(ctx, cats, template.Standard())
		if err != nil {
			return err
		}
		return tools.WriteAnalysis(a, out)
	}
	return fmt.Errorf("unknown format %q", format)
}

func runScripts(ctx context.Context, r tools.Responder, filenames []string, out io.Writer) error {
	failed := 0
	for _, filename := range filenames {
		s, err := tools.ReadScript(filename)
		if err != nil {
			return err
		}
		if err := s.Run(ctx, r); err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %s\n", filename, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d exchanges)\n", filename, len(s.Exchanges))
	}
	if 0 < failed {
		return fmt.Errorf("%d script(s) failed", failed)
	}
	return nil
}

