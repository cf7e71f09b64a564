package student

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/istagm/tfeapp/core"
)

var (
	// errors
	ErrNotFound            = errors.New("etudiant not found")
	ErrInvalidAmount       = errors.New("debit amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// updatable etudiant columns; anything else is rejected before SQL is built
	EtudiantColumns = columnSet(
		"telephone", "adresse", "e_mail", "avatar", "vision",
		"solde", "frais_acad", "frais_connexe", "secure", "mdp",
	)
)

type (
	// Repository abstracts the relational source for the student roster
	// and the commande/balance write gateway.
	Repository interface {
		QueryEtudiants(ctx context.Context) ([]Etudiant, error)
		GetEtudiantByID(ctx context.Context, id int) (Etudiant, error)
		GetEtudiantByMatricule(ctx context.Context, matricule string) (Etudiant, error)
		QueryActivitiesByEtudiantID(ctx context.Context, id int) ([]Activity, error)
		QueryCommandesTFEByEtudiantID(ctx context.Context, id int) ([]Commande, error)
		QueryCommandesStageByEtudiantID(ctx context.Context, id int) ([]CommandeStage, error)
		QueryRechargesByEtudiantID(ctx context.Context, id int) ([]Recharge, error)

		CreateCommandeTFE(ctx context.Context, nc NewCommandeTFE) (int64, error)
		CreateCommandeStage(ctx context.Context, nc NewCommandeStage) (int64, error)
		CreateCommandeTravail(ctx context.Context, nc NewCommandeTravail) (int64, error)
		CreateCommandeNote(ctx context.Context, nc NewCommandeNote) (int64, error)

		UpdateEtudiantField(ctx context.Context, id int, column string, value interface{}) error
	}

	// StudentReader serves cached student aggregates.
	StudentReader interface {
		GetByID(ctx context.Context, id int) (Student, error)
		GetByMatricule(ctx context.Context, matricule string) (Student, error)
	}

	Service struct {
		repo    Repository
		timeout time.Duration

		mu     sync.RWMutex // guards roster and per-entry patches
		roster map[int]Student

		debitMu sync.Mutex // serializes balance read-modify-write
	}
)

var _ StudentReader = (*Service)(nil)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		timeout: conf.Database.QueryTimeout,
		roster:  make(map[int]Student),
	}
}

func (svc *Service) fetchCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, svc.timeout)
}

// RefreshRoster rebuilds every student aggregate and swaps the roster
// wholesale. Any failing query aborts the rebuild and keeps the previous
// roster visible.
func (svc *Service) RefreshRoster(ctx context.Context) error {
	fctx, cancel := svc.fetchCtx(ctx)
	etudiants, err := svc.repo.QueryEtudiants(fctx)
	cancel()
	if err != nil {
		return err
	}

	students := make([]Student, len(etudiants))
	g, gctx := errgroup.WithContext(ctx)
	for i := range etudiants {
		i := i
		g.Go(func() error {
			st, err := svc.buildStudent(gctx, etudiants[i])
			if err != nil {
				return err
			}
			students[i] = st
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	roster := make(map[int]Student, len(students))
	for _, st := range students {
		roster[st.ID] = st
	}

	svc.mu.Lock()
	svc.roster = roster
	svc.mu.Unlock()
	return nil
}

// buildStudent assembles one full aggregate: activities plus the six
// commande buckets classified by type, first (oldest) row per bucket.
func (svc *Service) buildStudent(ctx context.Context, et Etudiant) (Student, error) {
	st := Student{
		ID:         et.ID,
		Profile:    et.Profile,
		Activities: []Activity{},
	}

	fctx, cancel := svc.fetchCtx(ctx)
	activities, err := svc.repo.QueryActivitiesByEtudiantID(fctx, et.ID)
	cancel()
	if err != nil {
		return Student{}, err
	}
	if activities != nil {
		st.Activities = activities
	}

	fctx, cancel = svc.fetchCtx(ctx)
	commandes, err := svc.repo.QueryCommandesTFEByEtudiantID(fctx, et.ID)
	cancel()
	if err != nil {
		return Student{}, err
	}
	for _, cmd := range commandes {
		switch cmd.Type {
		case TypeCouverture:
			if st.Couverture.ID == 0 {
				st.Couverture = cmd
			}
		case TypeSolde:
			if st.TFE.ID == 0 {
				st.TFE = cmd
			}
		case TypeAcompte:
			if st.Sujet.ID == 0 {
				st.Sujet = cmd
			}
		case TypeEnrollement:
			if st.Fiche.ID == 0 {
				st.Fiche = cmd
			}
		}
	}

	fctx, cancel = svc.fetchCtx(ctx)
	stages, err := svc.repo.QueryCommandesStageByEtudiantID(fctx, et.ID)
	cancel()
	if err != nil {
		return Student{}, err
	}
	for _, cmd := range stages {
		switch cmd.Type {
		case TypeLettre:
			if st.Stage.ID == 0 {
				st.Stage = cmd
			}
		case TypeLecture:
			if st.Rapport.ID == 0 {
				st.Rapport = cmd
			}
		}
	}

	return st, nil
}

// GetByID returns the cached aggregate, falling back to a single-row
// profile fetch on a roster miss. A fallback entry is profile-only until
// the next full refresh.
func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	svc.mu.RLock()
	st, ok := svc.roster[id]
	svc.mu.RUnlock()
	if ok {
		return st, nil
	}

	fctx, cancel := svc.fetchCtx(ctx)
	defer cancel()
	et, err := svc.repo.GetEtudiantByID(fctx, id)
	if err != nil {
		return Student{}, err
	}
	return svc.cacheFallback(et), nil
}

// GetByMatricule resolves a student for authentication. Roster first, then
// the same single-row fallback as GetByID.
func (svc *Service) GetByMatricule(ctx context.Context, matricule string) (Student, error) {
	matricule = core.CleanString(matricule)

	svc.mu.RLock()
	for _, st := range svc.roster {
		if st.Profile.Matricule == matricule {
			svc.mu.RUnlock()
			return st, nil
		}
	}
	svc.mu.RUnlock()

	fctx, cancel := svc.fetchCtx(ctx)
	defer cancel()
	et, err := svc.repo.GetEtudiantByMatricule(fctx, matricule)
	if err != nil {
		return Student{}, err
	}
	return svc.cacheFallback(et), nil
}

func (svc *Service) cacheFallback(et Etudiant) Student {
	st := Student{
		ID:          et.ID,
		Profile:     et.Profile,
		Activities:  []Activity{},
		ProfileOnly: true,
	}
	svc.mu.Lock()
	if cached, ok := svc.roster[et.ID]; ok { // lost the race to a refresh
		st = cached
	} else {
		svc.roster[et.ID] = st
	}
	svc.mu.Unlock()
	return st
}

// Debit withdraws amount from the student's balance. The new balance is
// persisted and mirrored into the cached roster entry; this is the only
// mutation that both writes through and patches the cache.
func (svc *Service) Debit(ctx context.Context, id int, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	svc.debitMu.Lock()
	defer svc.debitMu.Unlock()

	st, err := svc.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if st.Profile.Solde < amount {
		return 0, ErrInsufficientBalance
	}
	newBalance := st.Profile.Solde - amount

	if err = svc.repo.UpdateEtudiantField(ctx, id, "solde", newBalance); err != nil {
		return 0, err
	}

	svc.mu.Lock()
	if cached, ok := svc.roster[id]; ok {
		cached.Profile.Solde = newBalance
		svc.roster[id] = cached
	}
	svc.mu.Unlock()
	return newBalance, nil
}

// UpdateEtudiant updates a single allow-listed column. The cached roster
// entry is deliberately left untouched; only Debit patches the cache.
func (svc *Service) UpdateEtudiant(ctx context.Context, id int, column string, value interface{}) error {
	if !EtudiantColumns[column] {
		return core.NewValidationError(nil, core.FieldError{Field: "field", Error: "unknown updatable column: " + column})
	}
	return svc.repo.UpdateEtudiantField(ctx, id, column, value)
}

func (svc *Service) Recharges(ctx context.Context, id int) ([]Recharge, error) {
	fctx, cancel := svc.fetchCtx(ctx)
	defer cancel()
	recharges, err := svc.repo.QueryRechargesByEtudiantID(fctx, id)
	if recharges == nil {
		recharges = []Recharge{}
	}
	return recharges, err
}

func (svc *Service) Activities(ctx context.Context, id int) ([]Activity, error) {
	fctx, cancel := svc.fetchCtx(ctx)
	defer cancel()
	activities, err := svc.repo.QueryActivitiesByEtudiantID(fctx, id)
	if activities == nil {
		activities = []Activity{}
	}
	return activities, err
}

func (svc *Service) CommandesTFE(ctx context.Context, id int) ([]Commande, error) {
	fctx, cancel := svc.fetchCtx(ctx)
	defer cancel()
	commandes, err := svc.repo.QueryCommandesTFEByEtudiantID(fctx, id)
	if commandes == nil {
		commandes = []Commande{}
	}
	return commandes, err
}

func (svc *Service) CommandesStage(ctx context.Context, id int) ([]CommandeStage, error) {
	fctx, cancel := svc.fetchCtx(ctx)
	defer cancel()
	commandes, err := svc.repo.QueryCommandesStageByEtudiantID(fctx, id)
	if commandes == nil {
		commandes = []CommandeStage{}
	}
	return commandes, err
}

// Commande creates. None of these touch the cached roster; the next
// RefreshRoster picks them up.

func (svc *Service) CreateCommandeTFE(ctx context.Context, nc NewCommandeTFE) (int64, error) {
	return svc.repo.CreateCommandeTFE(ctx, nc)
}

func (svc *Service) CreateCommandeStage(ctx context.Context, nc NewCommandeStage) (int64, error) {
	return svc.repo.CreateCommandeStage(ctx, nc)
}

func (svc *Service) CreateCommandeTravail(ctx context.Context, nc NewCommandeTravail) (int64, error) {
	return svc.repo.CreateCommandeTravail(ctx, nc)
}

func (svc *Service) CreateCommandeNote(ctx context.Context, nc NewCommandeNote) (int64, error) {
	return svc.repo.CreateCommandeNote(ctx, nc)
}

func columnSet(cols ...string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, col := range cols {
		set[col] = true
	}
	return set
}
