package echoapi

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/istagm/tfeapp/core"
	"github.com/istagm/tfeapp/core/academics"
	"github.com/istagm/tfeapp/core/student"
)

const (
	// account roles, as carried in Claims.Role
	RoleEtudiant  = "etudiant"
	RoleDirecteur = "directeur"
	RoleTuteur    = "tuteur"
	RoleAgent     = "agent"
	RoleAdmin     = "admin"

	jwtContextKey = "userToken"
)

// newJWTConfig returns the JWT auth middleware config.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Matricule    string `json:"matricule,omitempty"`
	Role         string `json:"role,omitempty"`
	IsEtudiant   bool   `json:"is_etudiant,omitempty"`  // -> STUDENT PORTAL
	IsDirecteur  bool   `json:"is_directeur,omitempty"` // -> DIRECTOR PORTAL
	IsTuteur     bool   `json:"is_tuteur,omitempty"`    // -> TUTOR PORTAL
	IsAdmin      bool   `json:"is_admin,omitempty"`     // -> ADMIN PORTAL
}

func GetStudentClaims(conf *core.Config, st student.Student, origIat ...int64) *Claims {
	claims := baseClaims(conf, st.ID, origIat...)
	claims.Matricule = st.Profile.Matricule
	claims.Role = RoleEtudiant
	claims.IsEtudiant = true
	return claims
}

func GetAgentClaims(conf *core.Config, agent academics.Agent, origIat ...int64) *Claims {
	claims := baseClaims(conf, agent.ID, origIat...)
	claims.Matricule = agent.Matricule
	claims.Role = agent.Fonction
	claims.IsDirecteur = agent.Fonction == RoleDirecteur
	claims.IsTuteur = agent.Fonction == RoleTuteur
	claims.IsAdmin = agent.Fonction == RoleAdmin
	return claims
}

func baseClaims(conf *core.Config, id int, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(id),
			Audience:  "Academia",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
	}
}

// authenticate resolves matricule/secure against the student roster first,
// then the agent table. Both misses map to the same failure.
func authenticate(
	ctx echo.Context,
	conf *core.Config,
	studentSvc *student.Service,
	academicsSvc *academics.Service,
	matricule, secure string,
) (*Claims, error) {
	st, err := studentSvc.GetByMatricule(ctx.Request().Context(), matricule)
	if err == nil {
		if err = st.Profile.CheckSecure(secure); err != nil {
			return nil, errAuthenticationFailed
		}
		return GetStudentClaims(conf, st), nil
	}
	if errors.Cause(err) != student.ErrNotFound {
		return nil, errors.Wrap(err, "finding etudiant by matricule")
	}

	agent, err := academicsSvc.GetAgentByMatricule(ctx.Request().Context(), matricule)
	if err != nil {
		if errors.Cause(err) == academics.ErrAgentNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding agent by matricule")
	}
	if err = agent.CheckSecure(secure); err != nil {
		return nil, errAuthenticationFailed
	}
	return GetAgentClaims(conf, agent), nil
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func refreshToken(
	ctx echo.Context,
	conf *core.Config,
	studentSvc *student.Service,
	academicsSvc *academics.Service,
) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	// check if the account still exists
	var newClaims *Claims
	if claims.IsEtudiant {
		id, _ := strconv.Atoi(claims.Subject)
		st, err := studentSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			return "", errors.Wrap(err, "finding etudiant by ID")
		}
		newClaims = GetStudentClaims(conf, st, claims.OrigIssuedAt)
	} else {
		agent, err := academicsSvc.GetAgentByMatricule(ctx.Request().Context(), claims.Matricule)
		if err != nil {
			return "", errors.Wrap(err, "finding agent by matricule")
		}
		newClaims = GetAgentClaims(conf, agent, claims.OrigIssuedAt)
	}

	token, err := GenerateToken(conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
