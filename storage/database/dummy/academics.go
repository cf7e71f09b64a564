package dummydb

import (
	"context"

	"github.com/istagm/tfeapp/core/academics"
)

type AcademicsRepository struct {
	db *academicsTables

	// QueryErr, when set, fails every read; lets tests exercise
	// abort-on-failure rebuild semantics.
	QueryErr error
}

var _ academics.Repository = (*AcademicsRepository)(nil) // interface compliance check

func NewAcademicsRepository(db *DB) *AcademicsRepository {
	return &AcademicsRepository{db: db.academics}
}

// Seed helpers (test setup only).

func (repo *AcademicsRepository) AddSection(s academics.Section) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.sections = append(repo.db.sections, s)
}

func (repo *AcademicsRepository) AddPromotion(p academics.Promotion) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.promotions = append(repo.db.promotions, p)
}

func (repo *AcademicsRepository) AddTravail(promoID int, t academics.Travail) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.travaux[promoID] = append(repo.db.travaux[promoID], t)
}

func (repo *AcademicsRepository) AddNote(promoID int, n academics.Note) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.notes[promoID] = append(repo.db.notes[promoID], n)
}

func (repo *AcademicsRepository) AddAgent(a academics.Agent) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.agents[a.Matricule] = a
}

// SetAnnee declares the most recently created academic year.
func (repo *AcademicsRepository) SetAnnee(id int) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.latestAnnee = id
}

func (repo *AcademicsRepository) QueryPromotions(_ context.Context) ([]academics.Promotion, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	promotions := make([]academics.Promotion, len(repo.db.promotions))
	copy(promotions, repo.db.promotions)
	return promotions, nil
}

func (repo *AcademicsRepository) QueryTravauxByPromotionID(_ context.Context, id int) ([]academics.Travail, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.travaux[id], nil
}

func (repo *AcademicsRepository) QueryNotesByPromotionID(_ context.Context, id int) ([]academics.Note, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.notes[id], nil
}

func (repo *AcademicsRepository) QueryStagesByPromotionID(_ context.Context, id int) ([]academics.Stage, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	var stages []academics.Stage
	for _, s := range repo.db.stages[id] {
		if s.IDAnnee == repo.db.latestAnnee {
			stages = append(stages, s)
		}
	}
	return stages, nil
}

func (repo *AcademicsRepository) QuerySujetsByPromotionID(_ context.Context, id int) ([]academics.Sujet, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	var sujets []academics.Sujet
	for _, s := range repo.db.sujets[id] {
		if s.IDAnnee == repo.db.latestAnnee {
			sujets = append(sujets, s)
		}
	}
	return sujets, nil
}

func (repo *AcademicsRepository) QuerySections(_ context.Context) ([]academics.Section, error) {
	if repo.QueryErr != nil {
		return nil, repo.QueryErr
	}
	repo.db.RLock()
	defer repo.db.RUnlock()
	sections := make([]academics.Section, len(repo.db.sections))
	copy(sections, repo.db.sections)
	return sections, nil
}

func (repo *AcademicsRepository) GetAgentByMatricule(_ context.Context, matricule string) (academics.Agent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if agent, ok := repo.db.agents[matricule]; ok {
		return agent, nil
	}
	return academics.Agent{}, academics.ErrAgentNotFound
}

func (repo *AcademicsRepository) CreateSujet(_ context.Context, ns academics.NewSujet) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.pkCount++
	repo.db.sujets[ns.IDPromotion] = append(repo.db.sujets[ns.IDPromotion], academics.Sujet{
		ID:          int(repo.db.pkCount),
		Titre:       ns.Titre,
		Description: ns.Description,
		Status:      ns.Status,
		DateFin:     ns.DateFin,
		Theme:       ns.Theme,
		IDPromotion: ns.IDPromotion,
		IDAnnee:     ns.IDAnnee,
	})
	return repo.db.pkCount, nil
}

func (repo *AcademicsRepository) CreateResipiendaire(_ context.Context, _ academics.NewResipiendaire) (int64, error) {
	return repo.nextPK(), nil
}

func (repo *AcademicsRepository) CreateTuteur(_ context.Context, _ academics.NewTuteur) (int64, error) {
	return repo.nextPK(), nil
}

func (repo *AcademicsRepository) CreateStage(_ context.Context, ns academics.NewStage) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.pkCount++
	repo.db.stages[ns.IDPromotion] = append(repo.db.stages[ns.IDPromotion], academics.Stage{
		ID:          int(repo.db.pkCount),
		Designation: ns.Designation,
		IDPromotion: ns.IDPromotion,
		Montant:     ns.Montant,
		DateDebut:   ns.DateDebut,
		DateFin:     ns.DateFin,
		IDAnnee:     ns.IDAnnee,
	})
	return repo.db.pkCount, nil
}

func (repo *AcademicsRepository) CreatePayment(_ context.Context, _ academics.NewPayment) (int64, error) {
	return repo.nextPK(), nil
}

func (repo *AcademicsRepository) CreateEtape(_ context.Context, _ academics.NewEtape) (int64, error) {
	return repo.nextPK(), nil
}

func (repo *AcademicsRepository) UpdateSujetField(_ context.Context, id int, column string, value interface{}) error {
	return nil
}

func (repo *AcademicsRepository) UpdateResipiendaireField(_ context.Context, id int, column string, value interface{}) error {
	return nil
}

func (repo *AcademicsRepository) UpdateCommandeSujetField(_ context.Context, id int, column string, value interface{}) error {
	return nil
}

func (repo *AcademicsRepository) nextPK() int64 {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.pkCount++
	return repo.db.pkCount
}
