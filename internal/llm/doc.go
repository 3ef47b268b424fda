// Package llm sends prompts to a language model and normalizes the reply.
//
// One [Client] covers three wire formats, chosen by config.Model.Family:
//
//   - chat: OpenAI-compatible chat completions via openai-go, optionally
//     routed to an Azure deployment when an API version is configured.
//   - responses: the Azure responses endpoint over plain HTTP.
//   - messages: Anthropic messages via anthropic-sdk-go.
//
// Every reply is run through [ExtractContent], so callers only ever see the
// generated text. The SDKs' built-in retries are disabled; [Client.Complete]
// applies the retry package's policy instead. Per-task prompts and limits
// are carried by a [Profile].
package llm
