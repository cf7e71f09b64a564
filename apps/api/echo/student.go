package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/istagm/tfeapp/core"
	"github.com/istagm/tfeapp/core/academics"
	"github.com/istagm/tfeapp/core/student"
	"github.com/istagm/tfeapp/services/realtime"
)

type studentApi struct {
	conf         *core.Config
	svc          *student.Service
	academicsSvc *academics.Service
	hub          *realtime.Hub
	validate     *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{
		conf:         deps.Conf,
		svc:          deps.StudentSvc,
		academicsSvc: deps.AcademicsSvc,
		hub:          deps.Hub,
		validate:     deps.Validate,
	}

	// un-authed endpoints
	g.POST("/login", api.login)

	// authed endpoints
	ag := g.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)

	// detail endpoints
	dg := ag.Group("/etudiants/:id", selfOrAdminMiddleware("id"))
	dg.GET("", api.retrieve)
	dg.GET("/activites", api.activities)
	dg.GET("/commandes/tfe", api.commandesTFE)
	dg.GET("/commandes/stage", api.commandesStage)
	dg.GET("/recharges", api.recharges)
	dg.POST("/debit", api.debit)
	dg.PUT("", api.update, roleMiddleware() /* admin only */)

	// commande creates
	cg := ag.Group("/commandes", roleMiddleware(RoleEtudiant))
	cg.POST("/tfe", api.createCommandeTFE)
	cg.POST("/stage", api.createCommandeStage)
	cg.POST("/travail", api.createCommandeTravail)
	cg.POST("/note", api.createCommandeNote)
}

// Handlers

func (api *studentApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx, api.conf, api.svc, api.academicsSvc, data.Matricule, data.Secure)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *studentApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc, api.academicsSvc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}
	st, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding etudiant by ID")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) activities(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}
	activities, err := api.svc.Activities(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying activities")
	}
	return ctx.JSON(http.StatusOK, activities)
}

func (api *studentApi) commandesTFE(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}
	commandes, err := api.svc.CommandesTFE(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying commandes")
	}
	return ctx.JSON(http.StatusOK, commandes)
}

func (api *studentApi) commandesStage(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}
	commandes, err := api.svc.CommandesStage(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying commandes")
	}
	return ctx.JSON(http.StatusOK, commandes)
}

func (api *studentApi) recharges(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}
	recharges, err := api.svc.Recharges(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying recharges")
	}
	return ctx.JSON(http.StatusOK, recharges)
}

func (api *studentApi) debit(ctx echo.Context) error {
	id, err := paramInt(ctx, "id")
	if err != nil {
		return err
	}

	var data DebitRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DebitRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	solde, err := api.svc.Debit(ctx.Request().Context(), id, data.Amount)
	if err != nil {
		return errors.Wrap(err, "debiting etudiant")
	}

	api.hub.Broadcast(realtime.Message{
		Channel: realtime.EtudiantChannel(id),
		Event:   realtime.EventSoldeDebited,
		Data:    echo.Map{"solde": solde},
	})
	return ctx.JSON(http.StatusOK, DebitResponse{Solde: solde})
}

func (api *studentApi) update(ctx echo.Context) error {
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

	if err = api.svc.UpdateEtudiant(ctx.Request().Context(), id, data.Field, data.Value); err != nil {
		return errors.Wrap(err, "updating etudiant")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) createCommandeTFE(ctx echo.Context) error {
	var data student.NewCommandeTFE
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCommandeTFE")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreateCommandeTFE(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating commande")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *studentApi) createCommandeStage(ctx echo.Context) error {
	var data student.NewCommandeStage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCommandeStage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreateCommandeStage(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating commande")
	}

	api.hub.Broadcast(realtime.Message{
		Channel: realtime.EtudiantChannel(data.IDEtudiant),
		Event:   realtime.EventCommandeCreated,
		Data:    echo.Map{"id": id, "type": data.Type},
	})
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *studentApi) createCommandeTravail(ctx echo.Context) error {
	var data student.NewCommandeTravail
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCommandeTravail")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreateCommandeTravail(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating commande")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (api *studentApi) createCommandeNote(ctx echo.Context) error {
	var data student.NewCommandeNote
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCommandeNote")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	id, err := api.svc.CreateCommandeNote(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating commande")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

type (
	LoginRequest struct {
		Matricule string `json:"matricule" validate:"required,matricule"`
		Secure    string `json:"secure" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	DebitRequest struct {
		Amount float64 `json:"amount" validate:"required,gt=0"`
	}

	DebitResponse struct {
		Solde float64 `json:"solde"`
	}

	UpdateFieldRequest struct {
		Field string      `json:"field" validate:"required"`
		Value interface{} `json:"value" validate:"required"`
	}

	CreatedResponse struct {
		ID int64 `json:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Matricule = core.CleanString(lr.Matricule)
	return validate.Struct(lr)
}

func (dr *DebitRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(dr)
}

func (ur *UpdateFieldRequest) Validate(validate *validator.Validate) error {
	ur.Field = core.CleanString(ur.Field)
	return validate.Struct(ur)
}
