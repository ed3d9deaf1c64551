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

// Package openai implements ai.Embedder over OpenAI-compatible embedding APIs.
//
// Requests go through langchaingo's OpenAI client, so OpenAI itself and
// compatible servers (Ollama, LocalAI, vLLM) are all supported.
//
// # Usage
//
//	cfg := ai.NewConfig(
//	    ai.WithAPIKey(apiKey),
//	    ai.WithEmbeddingModel("text-embedding-3-small"),
//	    ai.WithDimensions(1536),
//	)
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "Producto: Taza")
package openai
