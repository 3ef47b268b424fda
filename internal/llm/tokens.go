package llm

import "time"

// Names of the request field that caps generated tokens.
const (
	ParamMaxTokens           = "max_tokens"
	ParamMaxCompletionTokens = "max_completion_tokens"
)

// Azure API versions dated on or after this accept max_completion_tokens.
var completionTokensSince = time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)

// TokenParam picks the token-limit field for an API version such as
// "2024-08-01-preview" or "2024-10-21". The leading date decides; anything
// that does not start with a YYYY-MM-DD date gets max_tokens.
func TokenParam(apiVersion string) string {
	if len(apiVersion) < len(time.DateOnly) {
		return ParamMaxTokens
	}
	d, err := time.Parse(time.DateOnly, apiVersion[:len(time.DateOnly)])
	if err != nil || d.Before(completionTokensSince) {
		return ParamMaxTokens
	}
	return ParamMaxCompletionTokens
}
