package common

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/simonjohansson/gemtracker/internal/client"
)

type Runtime interface {
	ServerURL() string
	Output() string
}

type HandleResponseFunc func(output string, stdout io.Writer, resp *http.Response, reqErr error) error

type WrapErrorFunc func(status int, message string) error

func NewClient(runtime Runtime) (*client.Client, error) {
	return client.NewClient(runtime.ServerURL())
}

// TransitionBody is the part of a design transition response the CLI acts on.
type TransitionBody struct {
	Action       string `json:"action"`
	Confirmation *struct {
		Kind   string            `json:"kind"`
		Active *client.DesignRef `json:"active"`
		Target client.DesignRef  `json:"target"`
	} `json:"confirmation"`
}

// PeekTransition decodes a successful transition response and rewinds the
// body so it can still be printed. Non-2xx responses are left untouched.
func PeekTransition(resp *http.Response) (TransitionBody, error) {
	var body TransitionBody
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, nil
	}
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return body, err
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return TransitionBody{}, err
	}
	return body, nil
}
