package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/istagm/tfeapp/core"
	"github.com/istagm/tfeapp/core/academics"
	"github.com/istagm/tfeapp/core/student"
	"github.com/istagm/tfeapp/services/realtime"
	dummydb "github.com/istagm/tfeapp/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	conf          *core.Config
	server        *Server
	db            *dummydb.DB
	academicsRepo *dummydb.AcademicsRepository
	studentRepo   *dummydb.StudentRepository
	academicsSvc  *academics.Service
	studentSvc    *student.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	academicsRepo := dummydb.NewAcademicsRepository(db)
	studentRepo := dummydb.NewStudentRepository(db)
	academicsSvc := academics.NewService(academicsRepo, conf)
	studentSvc := student.NewService(studentRepo, conf)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	server := NewServer(
		ServerDeps{
			Conf:         conf,
			Logger:       testLogger{},
			AcademicsSvc: academicsSvc,
			StudentSvc:   studentSvc,
			Hub:          realtime.NewHub(testLogger{}),
			Validate:     validate,
			Translator:   translator,
		},
	)

	return &testEnv{
		conf:          conf,
		server:        server,
		db:            db,
		academicsRepo: academicsRepo,
		studentRepo:   studentRepo,
		academicsSvc:  academicsSvc,
		studentSvc:    studentSvc,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type testLogger struct{}

func (testLogger) Debug(msg string, args ...interface{}) {}
func (testLogger) Info(msg string, args ...interface{})  {}
func (testLogger) Warn(msg string, args ...interface{})  {}
func (testLogger) Error(msg string, args ...interface{}) {}
func (testLogger) Fatal(msg string, args ...interface{}) {}

func hashSecure(t *testing.T, secure string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secure), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashSecure() failed: %v", err)
	}
	return string(hash)
}

func (env *testEnv) addEtudiant(t *testing.T, id int, matricule, secure string, solde float64) student.Etudiant {
	t.Helper()
	et := student.Etudiant{ID: id, Profile: student.Profile{
		Nom: "Etudiant", Matricule: matricule, Solde: solde, Secure: hashSecure(t, secure),
	}}
	env.studentRepo.AddEtudiant(et)
	return et
}

func (env *testEnv) addAgent(t *testing.T, id int, matricule, secure, fonction string) academics.Agent {
	t.Helper()
	agent := academics.Agent{ID: id, Nom: "Agent", Matricule: matricule, Fonction: fonction, Secure: hashSecure(t, secure)}
	env.academicsRepo.AddAgent(agent)
	return agent
}

func (env *testEnv) studentToken(t *testing.T, st student.Student) string {
	t.Helper()
	token, err := GenerateToken(env.conf, GetStudentClaims(env.conf, st))
	if err != nil {
		t.Fatalf("studentToken() failed: %v", err)
	}
	return token
}

func (env *testEnv) agentToken(t *testing.T, agent academics.Agent) string {
	t.Helper()
	token, err := GenerateToken(env.conf, GetAgentClaims(env.conf, agent))
	if err != nil {
		t.Fatalf("agentToken() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
