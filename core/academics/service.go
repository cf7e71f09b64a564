package academics

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/istagm/tfeapp/core"
)

var (
	// errors
	ErrNotFound      = errors.New("section not found")
	ErrAgentNotFound = errors.New("agent not found")

	// updatable columns per table; anything else is rejected before SQL is built
	SujetColumns         = columnSet("titre", "description", "status", "date_fin", "theme")
	ResipiendaireColumns = columnSet("mdp", "role")
	CommandeSujetColumns = columnSet("statut", "phone", "ref", "orderNumber", "description")
)

type (
	// Repository abstracts the relational source for the programme tree
	// and the director/tutor write gateway.
	Repository interface {
		QueryPromotions(ctx context.Context) ([]Promotion, error)
		QueryTravauxByPromotionID(ctx context.Context, id int) ([]Travail, error)
		QueryNotesByPromotionID(ctx context.Context, id int) ([]Note, error)
		QueryStagesByPromotionID(ctx context.Context, id int) ([]Stage, error)
		QuerySujetsByPromotionID(ctx context.Context, id int) ([]Sujet, error)
		QuerySections(ctx context.Context) ([]Section, error)
		GetAgentByMatricule(ctx context.Context, matricule string) (Agent, error)

		CreateSujet(ctx context.Context, ns NewSujet) (int64, error)
		CreateResipiendaire(ctx context.Context, nr NewResipiendaire) (int64, error)
		CreateTuteur(ctx context.Context, nt NewTuteur) (int64, error)
		CreateStage(ctx context.Context, ns NewStage) (int64, error)
		CreatePayment(ctx context.Context, np NewPayment) (int64, error)
		CreateEtape(ctx context.Context, ne NewEtape) (int64, error)

		UpdateSujetField(ctx context.Context, id int, column string, value interface{}) error
		UpdateResipiendaireField(ctx context.Context, id int, column string, value interface{}) error
		UpdateCommandeSujetField(ctx context.Context, id int, column string, value interface{}) error
	}

	// ProgrammeReader serves the cached programme tree.
	ProgrammeReader interface {
		Programmes() []Section
		SectionByID(id int) (Section, error)
	}

	// SujetWriter is the director-facing write surface.
	SujetWriter interface {
		CreateSujet(ctx context.Context, ns NewSujet) (int64, error)
		CreateResipiendaire(ctx context.Context, nr NewResipiendaire) (int64, error)
		UpdateSujet(ctx context.Context, id int, column string, value interface{}) error
		UpdateCommandeSujet(ctx context.Context, id int, column string, value interface{}) error
	}

	// TuteurWriter is the tutor-facing write surface.
	TuteurWriter interface {
		CreateTuteur(ctx context.Context, nt NewTuteur) (int64, error)
		CreatePayment(ctx context.Context, np NewPayment) (int64, error)
		CreateEtape(ctx context.Context, ne NewEtape) (int64, error)
		UpdateResipiendaire(ctx context.Context, id int, column string, value interface{}) error
	}

	// StageWriter creates internship offers.
	StageWriter interface {
		CreateStage(ctx context.Context, ns NewStage) (int64, error)
	}

	Service struct {
		repo    Repository
		timeout time.Duration
		tree    atomic.Pointer[[]Section]
	}
)

var (
	_ ProgrammeReader = (*Service)(nil)
	_ SujetWriter     = (*Service)(nil)
	_ TuteurWriter    = (*Service)(nil)
	_ StageWriter     = (*Service)(nil)
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		timeout: conf.Database.QueryTimeout,
	}
}

// fetchCtx bounds a single dependent fetch; a timed-out fetch fails the
// enclosing rebuild instead of silently dropping its branch.
func (svc *Service) fetchCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, svc.timeout)
}

// Refresh rebuilds the whole programme tree and publishes it atomically.
// Any failing query aborts the rebuild; the previously published tree (if
// any) stays visible.
func (svc *Service) Refresh(ctx context.Context) error {
	fctx, cancel := svc.fetchCtx(ctx)
	promotions, err := svc.repo.QueryPromotions(fctx)
	cancel()
	if err != nil {
		return err
	}

	// child collections are independent; fetch them concurrently and
	// await jointly before folding
	g, gctx := errgroup.WithContext(ctx)
	for i := range promotions {
		promo := &promotions[i]
		g.Go(func() error {
			fctx, cancel := svc.fetchCtx(gctx)
			defer cancel()
			travaux, err := svc.repo.QueryTravauxByPromotionID(fctx, promo.ID)
			if err != nil {
				return err
			}
			promo.Travaux = emptyIfNil(travaux)
			return nil
		})
		g.Go(func() error {
			fctx, cancel := svc.fetchCtx(gctx)
			defer cancel()
			notes, err := svc.repo.QueryNotesByPromotionID(fctx, promo.ID)
			if err != nil {
				return err
			}
			promo.Notes = emptyIfNil(notes)
			return nil
		})
		g.Go(func() error {
			fctx, cancel := svc.fetchCtx(gctx)
			defer cancel()
			stages, err := svc.repo.QueryStagesByPromotionID(fctx, promo.ID)
			if err != nil {
				return err
			}
			promo.Stages = emptyIfNil(stages)
			return nil
		})
		g.Go(func() error {
			fctx, cancel := svc.fetchCtx(gctx)
			defer cancel()
			sujets, err := svc.repo.QuerySujetsByPromotionID(fctx, promo.ID)
			if err != nil {
				return err
			}
			promo.Sujets = emptyIfNil(sujets)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	fctx, cancel = svc.fetchCtx(ctx)
	sections, err := svc.repo.QuerySections(fctx)
	cancel()
	if err != nil {
		return err
	}

	// fold: a promotion lands under exactly the section matching its
	// id_section; promotions without a section are dropped
	for i := range sections {
		section := &sections[i]
		section.Promotions = make([]Promotion, 0)
		for _, promo := range promotions {
			if promo.IDSection == section.ID {
				section.Promotions = append(section.Promotions, promo)
			}
		}
	}

	svc.tree.Store(&sections)
	return nil
}

// Programmes returns the last successfully built tree without touching the
// store. Empty before the first successful Refresh.
func (svc *Service) Programmes() []Section {
	if tree := svc.tree.Load(); tree != nil {
		return *tree
	}
	return []Section{}
}

// SectionByID looks a section up in the published tree. The tree is
// immutable between rebuilds, so there is no single-row fallback.
func (svc *Service) SectionByID(id int) (Section, error) {
	for _, section := range svc.Programmes() {
		if section.ID == id {
			return section, nil
		}
	}
	return Section{}, ErrNotFound
}

func (svc *Service) GetAgentByMatricule(ctx context.Context, matricule string) (Agent, error) {
	return svc.repo.GetAgentByMatricule(ctx, core.CleanString(matricule))
}

// Write gateway. Creates do not touch the published tree; the next Refresh
// picks them up.

func (svc *Service) CreateSujet(ctx context.Context, ns NewSujet) (int64, error) {
	return svc.repo.CreateSujet(ctx, ns)
}

func (svc *Service) CreateResipiendaire(ctx context.Context, nr NewResipiendaire) (int64, error) {
	return svc.repo.CreateResipiendaire(ctx, nr)
}

func (svc *Service) CreateTuteur(ctx context.Context, nt NewTuteur) (int64, error) {
	return svc.repo.CreateTuteur(ctx, nt)
}

func (svc *Service) CreateStage(ctx context.Context, ns NewStage) (int64, error) {
	return svc.repo.CreateStage(ctx, ns)
}

func (svc *Service) CreatePayment(ctx context.Context, np NewPayment) (int64, error) {
	return svc.repo.CreatePayment(ctx, np)
}

func (svc *Service) CreateEtape(ctx context.Context, ne NewEtape) (int64, error) {
	return svc.repo.CreateEtape(ctx, ne)
}

func (svc *Service) UpdateSujet(ctx context.Context, id int, column string, value interface{}) error {
	if err := checkColumn(SujetColumns, column); err != nil {
		return err
	}
	return svc.repo.UpdateSujetField(ctx, id, column, value)
}

func (svc *Service) UpdateResipiendaire(ctx context.Context, id int, column string, value interface{}) error {
	if err := checkColumn(ResipiendaireColumns, column); err != nil {
		return err
	}
	return svc.repo.UpdateResipiendaireField(ctx, id, column, value)
}

func (svc *Service) UpdateCommandeSujet(ctx context.Context, id int, column string, value interface{}) error {
	if err := checkColumn(CommandeSujetColumns, column); err != nil {
		return err
	}
	return svc.repo.UpdateCommandeSujetField(ctx, id, column, value)
}

func columnSet(cols ...string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, col := range cols {
		set[col] = true
	}
	return set
}

// checkColumn guards the identifier position of UPDATE statements; values
// are always parameterized but column names cannot be.
func checkColumn(allowed map[string]bool, column string) error {
	if !allowed[column] {
		return core.NewValidationError(nil, core.FieldError{Field: "field", Error: "unknown updatable column: " + column})
	}
	return nil
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
