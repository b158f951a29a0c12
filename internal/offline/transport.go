package offline

import "net/http"

type roundTripper struct {
	agent *Agent
}

// RoundTripper routes outbound client requests through the agent.
func (a *Agent) RoundTripper() http.RoundTripper {
	return roundTripper{agent: a}
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		defer req.Body.Close()
	}
	resp, err := rt.agent.Handle(req.Context(), req)
	if err != nil {
		return nil, err
	}
	return resp.HTTP(req), nil
}
