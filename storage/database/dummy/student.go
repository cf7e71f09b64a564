package dummydb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/istagm/tfeapp/core/student"
)

type StudentRepository struct {
	db *studentTables

	// QueryErr, when set, fails every read; lets tests exercise
	// abort-on-failure rebuild semantics.
	QueryErr error
}

var _ student.Repository = (*StudentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *StudentRepository {
	return &StudentRepository{db: db.student}
}

// Seed helpers (test setup only).

func (repo *StudentRepository) AddEtudiant(et student.Etudiant) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if et.ID == 0 {
		repo.db.pkCount++
		et.ID = int(repo.db.pkCount)
	}
	repo.db.etudiants[et.ID] = et
}

func (repo *StudentRepository) AddActivity(etudiantID int, a student.Activity) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.activities[etudiantID] = append(repo.db.activities[etudiantID], a)
}

func (repo *StudentRepository) AddCommandeTFE(etudiantID int, c student.Commande) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.commandesTFE[etudiantID] = append(repo.db.commandesTFE[etudiantID], c)
}

func (repo *StudentRepository) AddCommandeStage(etudiantID int, c student.CommandeStage) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.commandesStage[etudiantID] = append(repo.db.commandesStage[etudiantID], c)
}

func (repo *StudentRepository) AddRecharge(etudiantID int, r student.Recharge) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.recharges[etudiantID] = append(repo.db.recharges[etudiantID], r)
}

func (repo *StudentRepository) QueryEtudiants(_ context.Context) ([]student.Etudiant, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	etudiants := make([]student.Etudiant, 0, len(repo.db.etudiants))
	for _, et := range repo.db.etudiants {
		etudiants = append(etudiants, et)
	}
	return etudiants, nil
}

func (repo *StudentRepository) GetEtudiantByID(_ context.Context, id int) (student.Etudiant, error) {
	if repo.QueryErr != nil {
		return student.Etudiant{}, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	if et, ok := repo.db.etudiants[id]; ok {
		return et, nil
	}
	return student.Etudiant{}, student.ErrNotFound
}

func (repo *StudentRepository) GetEtudiantByMatricule(_ context.Context, matricule string) (student.Etudiant, error) {
	if repo.QueryErr != nil {
		return student.Etudiant{}, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, et := range repo.db.etudiants {
		if et.Matricule == matricule {
			return et, nil
		}
	}
	return student.Etudiant{}, student.ErrNotFound
}

func (repo *StudentRepository) QueryActivitiesByEtudiantID(_ context.Context, id int) ([]student.Activity, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.activities[id], nil
}

func (repo *StudentRepository) QueryCommandesTFEByEtudiantID(_ context.Context, id int) ([]student.Commande, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.commandesTFE[id], nil
}

func (repo *StudentRepository) QueryCommandesStageByEtudiantID(_ context.Context, id int) ([]student.CommandeStage, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.commandesStage[id], nil
}

func (repo *StudentRepository) QueryRechargesByEtudiantID(_ context.Context, id int) ([]student.Recharge, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.recharges[id], nil
}

func (repo *StudentRepository) CreateCommandeTFE(_ context.Context, _ student.NewCommandeTFE) (int64, error) {
	return repo.nextPK(), nil
}

func (repo *StudentRepository) CreateCommandeStage(_ context.Context, _ student.NewCommandeStage) (int64, error) {
	return repo.nextPK(), nil
}

func (repo *StudentRepository) CreateCommandeTravail(_ context.Context, _ student.NewCommandeTravail) (int64, error) {
	return repo.nextPK(), nil
}

func (repo *StudentRepository) CreateCommandeNote(_ context.Context, _ student.NewCommandeNote) (int64, error) {
	return repo.nextPK(), nil
}

func (repo *StudentRepository) UpdateEtudiantField(_ context.Context, id int, column string, value interface{}) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	et, ok := repo.db.etudiants[id]
	if !ok {
		return student.ErrNotFound
	}
	switch column {
	case "solde", "frais_acad", "frais_connexe":
		f, ok := value.(float64)
		if !ok {
			return errors.Errorf("column %s wants a float64, got %T", column, value)
		}
		switch column {
		case "solde":
			et.Solde = f
		case "frais_acad":
			et.FraisAcad = f
		case "frais_connexe":
			et.FraisConnexe = f
		}
	default:
		s, ok := value.(string)
		if !ok {
			return errors.Errorf("column %s wants a string, got %T", column, value)
		}
		switch column {
		case "telephone":
			et.Telephone.SetValid(s)
		case "adresse":
			et.Adresse.SetValid(s)
		case "e_mail":
			et.Email.SetValid(s)
		case "avatar":
			et.Avatar.SetValid(s)
		case "vision":
			et.Vision.SetValid(s)
		case "secure":
			et.Secure = s
		case "mdp":
			et.Mdp = s
		}
	}
	repo.db.etudiants[id] = et
	return nil
}

func (repo *StudentRepository) nextPK() int64 {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.pkCount++
	return repo.db.pkCount
}
