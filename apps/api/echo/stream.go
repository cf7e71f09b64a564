package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/istagm/tfeapp/services/realtime"
)

type streamApi struct {
	hub *realtime.Hub
}

func registerStreamAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := streamApi{hub: deps.Hub}

	g.GET("/stream", api.stream, jwt)
}

// stream opens a server-sent events subscription. Every client follows the
// programme channel; students additionally follow their own channel.
func (api *streamApi) stream(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	client := api.hub.NewClient()
	defer api.hub.CloseClient(client)

	api.hub.Subscribe(client, realtime.ChannelProgrammes)
	if claims.IsEtudiant {
		if id, err := strconv.Atoi(claims.Subject); err == nil {
			api.hub.Subscribe(client, realtime.EtudiantChannel(id))
		}
	}

	api.hub.ServeHTTP(ctx.Response(), ctx.Request(), client)
	return nil
}
