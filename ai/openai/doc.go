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


// Package openai implements the ai interfaces using OpenAI-compatible APIs.
//
// The implementation works with any OpenAI-compatible endpoint, including
// local services like Ollama, LocalAI, and vLLM, as well as the hosted
// OpenAI API. Authentication uses OPENAI_API_KEY when set and falls back to
// a placeholder token for local services that do not require one.
package openai
