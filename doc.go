// Package aiml provides a rule-language engine for conversational
// pattern markup.
//
// The category extractor is in package 'reader', the template
// interpreter is in package 'template', and some command-line tools
// are in `cmd`.
package aiml
