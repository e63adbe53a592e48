// Copyright 2025 Poiesic Systems
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


// Package engine defines the inference engine used to embed sequences.
//
// The engine is an external collaborator: model loading, tokenization and the
// numeric work happen behind the Engine interface. Callers construct one engine
// per run and hold it by reference, so tests can substitute a fake.
//
// # Implementation Packages
//
//   - engine/openai: remote engine using OpenAI-compatible embedding APIs
//   - engine/mock: deterministic test double with padding and failure injection
//
// # Errors
//
// Engines report failures as *Error values carrying a Kind. The batch executor
// uses the kind to tell resource exhaustion (the batch was too large for the
// device) apart from other failures, and WithRetry retries only transient
// unavailability:
//
//	matrices, err := eng.Embed(ctx, sequences)
//	if engine.IsResourceExhausted(err) {
//	    // a smaller batch may succeed
//	}
//
// # Constructor Return Type Pattern
//
// Public constructors for production engines return the Engine interface.
// mock.NewEngine returns the concrete type so tests can inject behavior.
package engine
