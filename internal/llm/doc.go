// Package llm provides the remote collaborators used by voice extraction:
// speech-to-text transcription and chat completion. It supports OpenAI and
// Anthropic, with retry logic, rate limiting, and response caching.
package llm
