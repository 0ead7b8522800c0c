package auth

import "net/url"

// Session field names written by the login flow.
const (
	KeyState = "state"
	KeyNonce = "nonce"
	KeyUser  = "user"
)

// CallbackParams are the query parameters the provider appends to the redirect URI.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

func CallbackParamsFromQuery(q url.Values) CallbackParams {
	return CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// Step is a stage of the callback state machine.
type Step string

const (
	StepStart          Step = "START"
	StepStateVerified  Step = "STATE_VERIFIED"
	StepTokenExchanged Step = "TOKEN_EXCHANGED"
	StepProfileFetched Step = "PROFILE_FETCHED"
	StepSessionUpdated Step = "SESSION_UPDATED"
	StepRedirected     Step = "REDIRECTED"
)
