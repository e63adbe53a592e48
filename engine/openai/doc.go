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


// Package openai provides an engine.Engine backed by an OpenAI-compatible
// embedding API.
//
// It uses the langchaingo library to talk to OpenAI-compatible services
// (vLLM, LocalAI, Ollama or a protein-model server exposing /v1/embeddings).
// Sequences are sent with residues separated by single spaces, the input form
// protein language models such as ProtT5 expect.
//
// # Usage
//
//	config := engine.NewConfig(
//	    engine.WithHost("http://gpu-node:8000"),  // /v1 added automatically
//	    engine.WithModel("Rostlab/prot_t5_xl_half_uniref50-enc"),
//	)
//
//	eng, err := openai.NewEngine(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
// # Output
//
// Embedding endpoints return one pooled vector per input, so this engine
// reports Pooled() == true and each returned matrix has a single row.
// Per-residue output requires a different engine.
//
// # Error Classification
//
// Transport errors and 5xx responses are reported as engine.KindUnavailable.
// Out-of-memory and payload-size rejections are engine.KindResourceExhausted.
package openai
