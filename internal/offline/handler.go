package offline

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var hopHeaders = map[string]bool{
	"Connection":        true,
	"Content-Length":    true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

// Handler serves the widget's static assets from the origin through the agent.
func Handler(agent *Agent) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target := agent.AssetURL(c.Path())
		if qs := string(c.Request().URI().QueryString()); qs != "" {
			target += "?" + qs
		}

		req, err := http.NewRequestWithContext(c.UserContext(), http.MethodGet, target, nil)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if accept := c.Get(fiber.HeaderAccept); accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := agent.Handle(c.UserContext(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "asset unavailable: "+err.Error())
		}

		for k, vs := range resp.Header {
			if hopHeaders[http.CanonicalHeaderKey(k)] {
				continue
			}
			c.Set(k, strings.Join(vs, ", "))
		}
		return c.Status(resp.Status).Send(resp.Body)
	}
}
