package student_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istagm/tfeapp/core"
	"github.com/istagm/tfeapp/core/student"
	dummydb "github.com/istagm/tfeapp/storage/database/dummy"
)

func newTestService(t *testing.T) (*student.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	conf := core.NewConfig()
	return student.NewService(dummydb.NewStudentRepository(db), conf), db
}

func seedRoster(t *testing.T, db *dummydb.DB) {
	t.Helper()
	repo := dummydb.NewStudentRepository(db)

	repo.AddEtudiant(student.Etudiant{ID: 1, Profile: student.Profile{
		Nom: "Kalala", Matricule: "05.18.04321", Solde: 100,
	}})
	repo.AddEtudiant(student.Etudiant{ID: 2, Profile: student.Profile{
		Nom: "Mbuyi", Matricule: "05.18.05555", Solde: 40,
	}})

	repo.AddActivity(1, student.Activity{ID: 1, Designation: "Depot du sujet"})

	// oldest row per type wins; later duplicates are dropped
	repo.AddCommandeTFE(1, student.Commande{ID: 10, Type: student.TypeCouverture, Ref: "CV-1"})
	repo.AddCommandeTFE(1, student.Commande{ID: 11, Type: student.TypeAcompte, Ref: "AC-1"})
	repo.AddCommandeTFE(1, student.Commande{ID: 12, Type: student.TypeAcompte, Ref: "AC-2"})
	repo.AddCommandeTFE(1, student.Commande{ID: 13, Type: student.TypeSolde, Ref: "SO-1"})
	repo.AddCommandeTFE(1, student.Commande{ID: 14, Type: student.TypeEnrollement, Ref: "EN-1"})

	repo.AddCommandeStage(1, student.CommandeStage{ID: 20, Type: student.TypeLettre, Ref: "LE-1"})
	repo.AddCommandeStage(1, student.CommandeStage{ID: 21, Type: student.TypeLecture, Ref: "RA-1"})
	repo.AddCommandeStage(1, student.CommandeStage{ID: 22, Type: student.TypeLettre, Ref: "LE-2"})
}

func TestService_RefreshRoster_classification(t *testing.T) {
	svc, db := newTestService(t)
	seedRoster(t, db)

	require.NoError(t, svc.RefreshRoster(context.Background()))

	st, err := svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, st.ProfileOnly)
	require.Len(t, st.Activities, 1)

	assert.Equal(t, "CV-1", st.Couverture.Ref)
	assert.Equal(t, "SO-1", st.TFE.Ref)
	assert.Equal(t, "EN-1", st.Fiche.Ref)
	// first Acompte wins; the duplicate is dropped
	assert.Equal(t, "AC-1", st.Sujet.Ref)

	assert.Equal(t, "LE-1", st.Stage.Ref)
	assert.Equal(t, "RA-1", st.Rapport.Ref)
}

func TestService_emptyBucketsMarshalAsObjects(t *testing.T) {
	svc, db := newTestService(t)
	seedRoster(t, db)
	require.NoError(t, svc.RefreshRoster(context.Background()))

	st, err := svc.GetByID(context.Background(), 2)
	require.NoError(t, err)

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"couverture":{}`)
	assert.Contains(t, string(data), `"tfe":{}`)
	assert.Contains(t, string(data), `"sujet":{}`)
	assert.Contains(t, string(data), `"fiche":{}`)
	assert.Contains(t, string(data), `"stage":{}`)
	assert.Contains(t, string(data), `"rapport":{}`)
	assert.Contains(t, string(data), `"activities":[]`)
}

// Two rebuilds over an unchanged store yield structurally equal aggregates.
func TestService_RefreshRoster_idempotent(t *testing.T) {
	svc, db := newTestService(t)
	seedRoster(t, db)

	require.NoError(t, svc.RefreshRoster(context.Background()))
	first1, err := svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	first2, err := svc.GetByID(context.Background(), 2)
	require.NoError(t, err)

	require.NoError(t, svc.RefreshRoster(context.Background()))
	second1, err := svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	second2, err := svc.GetByID(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, first1, second1)
	assert.Equal(t, first2, second2)
}

func TestService_RefreshRoster_failureKeepsPreviousRoster(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewStudentRepository(db)
	svc := student.NewService(repo, core.NewConfig())
	seedRoster(t, db)

	require.NoError(t, svc.RefreshRoster(context.Background()))

	repo.QueryErr = errors.New("boom")
	require.Error(t, svc.RefreshRoster(context.Background()))

	// previous roster stays visible
	st, err := svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Kalala", st.Profile.Nom)
}

func TestService_GetByID_fallback(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewStudentRepository(db)
	svc := student.NewService(repo, core.NewConfig())
	seedRoster(t, db)

	// roster never refreshed; a miss falls back to a single-row fetch
	st, err := svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, st.ProfileOnly)
	assert.Equal(t, "Kalala", st.Profile.Nom)
	assert.NotNil(t, st.Activities)
	assert.Empty(t, st.Activities)

	// the fallback entry is cached; no further store round trip
	repo.QueryErr = errors.New("boom")
	st, err = svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, st.ProfileOnly)

	_, err = svc.GetByID(context.Background(), 42)
	require.Error(t, err)
}

func TestService_GetByMatricule(t *testing.T) {
	svc, db := newTestService(t)
	seedRoster(t, db)

	// fallback path first
	st, err := svc.GetByMatricule(context.Background(), " 05.18.05555 ")
	require.NoError(t, err)
	assert.Equal(t, 2, st.ID)
	assert.True(t, st.ProfileOnly)

	// roster path after a refresh
	require.NoError(t, svc.RefreshRoster(context.Background()))
	st, err = svc.GetByMatricule(context.Background(), "05.18.04321")
	require.NoError(t, err)
	assert.Equal(t, 1, st.ID)
	assert.False(t, st.ProfileOnly)

	_, err = svc.GetByMatricule(context.Background(), "00.00.00000")
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_Debit(t *testing.T) {
	svc, db := newTestService(t)
	seedRoster(t, db)
	require.NoError(t, svc.RefreshRoster(context.Background()))
	ctx := context.Background()

	_, err := svc.Debit(ctx, 1, 0)
	assert.Equal(t, student.ErrInvalidAmount, err)
	_, err = svc.Debit(ctx, 1, -5)
	assert.Equal(t, student.ErrInvalidAmount, err)

	_, err = svc.Debit(ctx, 1, 100.01)
	assert.Equal(t, student.ErrInsufficientBalance, err)

	solde, err := svc.Debit(ctx, 1, 25)
	require.NoError(t, err)
	assert.Equal(t, 75.0, solde)

	// persisted in the store
	repo := dummydb.NewStudentRepository(db)
	et, err := repo.GetEtudiantByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 75.0, et.Solde)

	// and mirrored in the cached aggregate
	st, err := svc.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 75.0, st.Profile.Solde)

	// draining the balance exactly is allowed
	solde, err = svc.Debit(ctx, 1, 75)
	require.NoError(t, err)
	assert.Equal(t, 0.0, solde)

	_, err = svc.Debit(ctx, 42, 10)
	require.Error(t, err)
}

func TestService_UpdateEtudiant(t *testing.T) {
	svc, db := newTestService(t)
	seedRoster(t, db)
	require.NoError(t, svc.RefreshRoster(context.Background()))
	ctx := context.Background()

	err := svc.UpdateEtudiant(ctx, 1, "matricule", "hacked")
	require.Error(t, err)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	// a value of the wrong type for the column errors rather than panics
	err = svc.UpdateEtudiant(ctx, 1, "telephone", 243811234567.0)
	require.Error(t, err)
	err = svc.UpdateEtudiant(ctx, 1, "solde", "not-a-number")
	require.Error(t, err)

	require.NoError(t, svc.UpdateEtudiant(ctx, 1, "telephone", "+243811234567"))

	// persisted, but the cached aggregate is left alone until the next refresh
	repo := dummydb.NewStudentRepository(db)
	et, err := repo.GetEtudiantByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "+243811234567", et.Telephone.String)

	st, err := svc.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, st.Profile.Telephone.Valid)
}

func TestService_listings_neverNil(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	recharges, err := svc.Recharges(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, recharges)
	assert.Empty(t, recharges)

	activities, err := svc.Activities(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, activities)

	commandes, err := svc.CommandesTFE(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, commandes)

	stages, err := svc.CommandesStage(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, stages)
}
