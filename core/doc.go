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

// Package core provides the shared gear for the rule engine: the
// Category (a rule unit), the Diagnostic records that every stage
// reports instead of failing, and the contracts for the collaborators
// that the extractor and interpreter talk to.
//
// A Category is produced by package reader, which scans markup text
// and hands each validated rule to a CategorySink.  A RuleIndex (see
// package graph) is the usual sink.  At conversation time, the
// RuleIndex resolves an input to a Match, and package template
// evaluates the Match's template against a Predicates store.
//
// Nothing in this package blocks or does IO.
package core
