package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// apiFailure is what a provider error tells us. status is 0 when the
// request never got an HTTP answer.
type apiFailure struct {
	status int
	detail string
}

func inspect(err error) apiFailure {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := bodyDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return apiFailure{status: reqErr.HTTPStatusCode, detail: detail}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiFailure{status: apiErr.HTTPStatusCode, detail: apiErr.Message}
	}
	return apiFailure{}
}

// permanent reports a 4xx that a retry will not fix. 408 and 429 are transient.
func (f apiFailure) permanent() bool {
	switch f.status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return f.status >= 400 && f.status < 500
}

// wrapAPIError tags err with sentinel, keeping the provider's message.
func wrapAPIError(api string, err, sentinel error) error {
	f := inspect(err)
	if f.status == 0 {
		return fmt.Errorf("%s request failed: %w: %w", api, sentinel, err)
	}
	return fmt.Errorf("%s API error %d: %s: %w", api, f.status, f.detail, sentinel)
}

// bodyDetail reads the {"detail": "..."} error body Nebius returns.
func bodyDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.Detail
}
