package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/istagm/tfeapp/core"
	"github.com/istagm/tfeapp/core/academics"
	"github.com/istagm/tfeapp/services/realtime"
)

type academicsApi struct {
	logger   core.Logger
	svc      *academics.Service
	hub      *realtime.Hub
	validate *validator.Validate
}

func registerAcademicsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := academicsApi{
		logger:   deps.Logger,
		svc:      deps.AcademicsSvc,
		hub:      deps.Hub,
		validate: deps.Validate,
	}

	ag := g.Group("", jwt)
	ag.GET("/promotions/programmes", api.programmes)
	ag.GET("/sections/:id", api.section)

	// director endpoints
	dg := ag.Group("", roleMiddleware(RoleDirecteur))
	dg.POST("/sujets", api.createSujet)
	dg.PUT("/sujets/:id", api.updateSujet)
	dg.POST("/resipiendaires", api.createResipiendaire)
	dg.PUT("/commandes/sujet/:id", api.updateCommandeSujet)
	dg.POST("/stages", api.createStage)

	// tutor endpoints
	tg := ag.Group("", roleMiddleware(RoleTuteur, RoleDirecteur))
	tg.POST("/tuteurs", api.createTuteur)
	tg.POST("/payments", api.createPayment)
	tg.POST("/etapes", api.createEtape)
	tg.PUT("/resipiendaires/:id", api.updateResipiendaire)
}

// Handlers

// programmes rebuilds the tree then serves it. A failed rebuild falls back
// to the previously published tree; with nothing published yet, the failure
// surfaces.
func (api *academicsApi) programmes(ctx echo.Context) error {
	if err := api.svc.Refresh(ctx.Request().Context()); err != nil {
		sections := api.svc.Programmes()
		if len(sections) == 0 {
			return errors.Wrap(err, "refreshing programmes")
		}
		api.logger.Warn("programmes refresh failed; serving stale tree", err)
		return ctx.JSON(http.StatusOK, sections)
	}
	return ctx.JSON(http.StatusOK, api.svc.Programmes())
}

func (api *academicsApi) section(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}
	section, err := api.svc.SectionByID(id)
	if err != nil {
		return errors.Wrap(err, "finding section by ID")
	}
	return ctx.JSON(http.StatusOK, section)
}

func (api *academicsApi) createSujet(ctx echo.Context) error {
	var data academics.NewSujet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSujet")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreateSujet(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating sujet")
	}

	api.hub.Broadcast(realtime.Message{
		Channel: realtime.ChannelProgrammes,
		Event:   realtime.EventProgrammesRefreshed,
		Data:    echo.Map{"sujet": id},
	})
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *academicsApi) updateSujet(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}

	var data UpdateFieldRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFieldRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.UpdateSujet(ctx.Request().Context(), id, data.Field, data.Value); err != nil {
		return errors.Wrap(err, "updating sujet")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) createResipiendaire(ctx echo.Context) error {
	var data academics.NewResipiendaire
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResipiendaire")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreateResipiendaire(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating resipiendaire")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *academicsApi) updateResipiendaire(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}

	var data UpdateFieldRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFieldRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.UpdateResipiendaire(ctx.Request().Context(), id, data.Field, data.Value); err != nil {
		return errors.Wrap(err, "updating resipiendaire")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) updateCommandeSujet(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}

	var data UpdateFieldRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFieldRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.UpdateCommandeSujet(ctx.Request().Context(), id, data.Field, data.Value); err != nil {
		return errors.Wrap(err, "updating commande")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) createStage(ctx echo.Context) error {
	var data academics.NewStage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreateStage(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating stage")
	}

	api.hub.Broadcast(realtime.Message{
		Channel: realtime.ChannelProgrammes,
		Event:   realtime.EventProgrammesRefreshed,
		Data:    echo.Map{"stage": id},
	})
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *academicsApi) createTuteur(ctx echo.Context) error {
	var data academics.NewTuteur
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTuteur")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreateTuteur(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating tuteur")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *academicsApi) createPayment(ctx echo.Context) error {
	var data academics.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreatePayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *academicsApi) createEtape(ctx echo.Context) error {
	var data academics.NewEtape
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEtape")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreateEtape(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating etape")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}
