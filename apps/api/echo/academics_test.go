package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/istagm/tfeapp/core/academics"
)

func seedProgrammes(t *testing.T, env *testEnv) {
	t.Helper()
	env.academicsRepo.SetAnnee(3)
	env.academicsRepo.AddSection(academics.Section{ID: 1, Designation: "Informatique de Gestion"})
	env.academicsRepo.AddSection(academics.Section{ID: 2, Designation: "Sciences Commerciales"})
	env.academicsRepo.AddPromotion(academics.Promotion{ID: 10, Designation: "L1 IG", IDSection: 1})
	env.academicsRepo.AddPromotion(academics.Promotion{ID: 20, Designation: "L1 SC", IDSection: 2})
}

func Test_academicsApi_programmes(t *testing.T) {
	env := setup(t)
	seedProgrammes(t, env)
	st := env.addEtudiant(t, 1, "05.18.04321", "secret123", 100)
	if err := env.studentSvc.RefreshRoster(context.Background()); err != nil {
		t.Fatalf("refreshing roster failed: %v", err)
	}
	stAgg, _ := env.studentSvc.GetByID(context.Background(), st.ID)
	token := env.studentToken(t, stAgg)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/promotions/programmes", "")
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("Tree served", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/promotions/programmes", token)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}

		var tree []academics.Section
		if err := json.Unmarshal(rec.Body.Bytes(), &tree); err != nil {
			t.Fatalf("unmarshalling tree failed: %v", err)
		}
		if len(tree) != 2 {
			t.Fatalf("failed! sections = %v; want 2", len(tree))
		}
		if len(tree[0].Promotions) != 1 || tree[0].Promotions[0].ID != 10 {
			t.Errorf("failed! unexpected promotions under section 1: %+v", tree[0].Promotions)
		}
	})

	t.Run("Rebuild failure serves stale tree", func(t *testing.T) {
		env.academicsRepo.QueryErr = context.DeadlineExceeded
		defer func() { env.academicsRepo.QueryErr = nil }()

		req, rec := newAuthRequest(http.MethodGet, "/api/promotions/programmes", token)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var tree []academics.Section
		if err := json.Unmarshal(rec.Body.Bytes(), &tree); err != nil {
			t.Fatalf("unmarshalling tree failed: %v", err)
		}
		if len(tree) != 2 {
			t.Errorf("failed! sections = %v; want 2 (stale tree)", len(tree))
		}
	})
}

func Test_academicsApi_section(t *testing.T) {
	env := setup(t)
	seedProgrammes(t, env)
	directeur := env.addAgent(t, 7, "AG-001", "dirpwd", RoleDirecteur)
	token := env.agentToken(t, directeur)
	if err := env.academicsSvc.Refresh(context.Background()); err != nil {
		t.Fatalf("refreshing programmes failed: %v", err)
	}

	tests := []httpTest{
		{name: "Found", path: "/api/sections/1", token: token, wantCode: http.StatusOK},
		{
			name: "Not found", path: "/api/sections/42", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "section not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_academicsApi_createSujet(t *testing.T) {
	env := setup(t)
	env.addEtudiant(t, 1, "05.18.04321", "secret123", 100)
	if err := env.studentSvc.RefreshRoster(context.Background()); err != nil {
		t.Fatalf("refreshing roster failed: %v", err)
	}
	st, _ := env.studentSvc.GetByID(context.Background(), 1)
	directeur := env.addAgent(t, 7, "AG-001", "dirpwd", RoleDirecteur)
	tuteur := env.addAgent(t, 8, "AG-002", "tutpwd", RoleTuteur)

	newSujet := academics.NewSujet{
		Titre: "Conception d'un systeme de paie", Description: "Etude de cas", Status: "ouvert",
		DateFin: "2026-06-30", Theme: "Genie Logiciel", IDPromotion: 10, IDAnnee: 3,
	}

	tests := []httpTest{
		{
			name: "Etudiant forbidden", token: env.studentToken(t, st), body: marchallObj(t, newSujet),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Tuteur forbidden", token: env.agentToken(t, tuteur), body: marchallObj(t, newSujet),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Validation date_fin required", token: env.agentToken(t, directeur),
			body: marchallObj(t, academics.NewSujet{
				Titre: "X", Description: "Y", Status: "ouvert", Theme: "Z", IDPromotion: 10, IDAnnee: 3,
			}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"date_fin": "this field is required"}),
		},
		{
			name: "Create ok", token: env.agentToken(t, directeur), body: marchallObj(t, newSujet),
			wantCode: http.StatusCreated, wantData: marchallObj(t, CreatedResponse{ID: 1}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/sujets", tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_academicsApi_updateSujet(t *testing.T) {
	env := setup(t)
	directeur := env.addAgent(t, 7, "AG-001", "dirpwd", RoleDirecteur)
	token := env.agentToken(t, directeur)

	tests := []httpTest{
		{
			name: "Unknown column", body: marchallObj(t, UpdateFieldRequest{Field: "id_promotion", Value: 9}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"field": "unknown updatable column: id_promotion"}),
		},
		{
			name: "Update ok", body: marchallObj(t, UpdateFieldRequest{Field: "status", Value: "clos"}),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/api/sujets/1", token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_academicsApi_tutorEndpoints(t *testing.T) {
	env := setup(t)
	tuteur := env.addAgent(t, 8, "AG-002", "tutpwd", RoleTuteur)
	token := env.agentToken(t, tuteur)

	t.Run("Create payment ok", func(t *testing.T) {
		body := marchallObj(t, academics.NewPayment{
			IDSujet: 1, Type: "Acompte", Amount: 50, DateDebut: "2025-10-01", DateFin: "2025-12-01",
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/payments", token, body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusCreated, wantData: marchallObj(t, CreatedResponse{ID: 1})}, rec)
	})

	t.Run("Payment type constrained", func(t *testing.T) {
		body := marchallObj(t, academics.NewPayment{
			IDSujet: 1, Type: "Cadeau", Amount: 50, DateDebut: "2025-10-01", DateFin: "2025-12-01",
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/payments", token, body)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("Create etape ok", func(t *testing.T) {
		body := marchallObj(t, academics.NewEtape{IDSujet: 1, Tache: "Redaction chapitre 1", Duree: "2 semaines", DateDebut: "2025-11-01"})
		req, rec := newAuthRequest(http.MethodPost, "/api/etapes", token, body)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})

	t.Run("Create tuteur ok", func(t *testing.T) {
		body := marchallObj(t, academics.NewTuteur{IDSujet: 1, IDAgent: 8, Type: "Directeur"})
		req, rec := newAuthRequest(http.MethodPost, "/api/tuteurs", token, body)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})
}
