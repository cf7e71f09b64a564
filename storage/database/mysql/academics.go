package mysqlrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/istagm/tfeapp/core/academics"
)

// latestAnnee scopes stage/sujet queries to the most recently created
// academic year, resolved at query time.
const latestAnnee = `(SELECT annee.id FROM annee ORDER BY annee.id DESC LIMIT 1)`

type academicsRepository struct {
	db *sqlx.DB
}

var _ academics.Repository = (*academicsRepository)(nil) // interface compliance check

func NewAcademicsRepository(db *sqlx.DB) *academicsRepository {
	return &academicsRepository{db: db}
}

func (repo academicsRepository) QueryPromotions(ctx context.Context) ([]academics.Promotion, error) {
	query := `SELECT p.id, p.designation, p.id_section, p.id_niveau, n.intitule AS classe, n.systeme
		FROM promotion p
		INNER JOIN niveau n ON n.id = p.id_niveau`
	var promotions []academics.Promotion
	if err := repo.db.SelectContext(ctx, &promotions, query); err != nil {
		return nil, errors.Wrap(err, "querying promotions")
	}
	return promotions, nil
}

func (repo academicsRepository) QueryTravauxByPromotionID(ctx context.Context, id int) ([]academics.Travail, error) {
	query := `SELECT t.id, t.id_charge, t.titre, t.consigne, t.date_remise,
			m.designation AS cours, m.credit, m.semestre, u.designation AS unite, c.penalites_trvx
		FROM travail t
		INNER JOIN charge_horaire c ON c.id = t.id_charge
		INNER JOIN matiere m ON m.id = c.id_matiere
		INNER JOIN unite u ON u.id = m.id_unite
		WHERE u.id_promotion = ?`
	var travaux []academics.Travail
	if err := repo.db.SelectContext(ctx, &travaux, query, id); err != nil {
		return nil, errors.Wrap(err, "querying travaux")
	}
	return travaux, nil
}

func (repo academicsRepository) QueryNotesByPromotionID(ctx context.Context, id int) ([]academics.Note, error) {
	query := `SELECT c.id, c.id_matiere, c.url_document,
			m.designation AS cours, m.credit, m.semestre, u.designation AS unite
		FROM charge_horaire c
		INNER JOIN matiere m ON m.id = c.id_matiere
		INNER JOIN unite u ON u.id = m.id_unite
		WHERE c.url_document IS NOT NULL AND u.id_promotion = ?`
	var notes []academics.Note
	if err := repo.db.SelectContext(ctx, &notes, query, id); err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	return notes, nil
}

func (repo academicsRepository) QueryStagesByPromotionID(ctx context.Context, id int) ([]academics.Stage, error) {
	query := `SELECT s.id, s.designation, s.id_promotion, s.montant, s.date_debut, s.date_fin,
			s.url_guide, s.id_annee, s.description
		FROM stage s
		WHERE s.id_promotion = ? AND s.id_annee = ` + latestAnnee
	var stages []academics.Stage
	if err := repo.db.SelectContext(ctx, &stages, query, id); err != nil {
		return nil, errors.Wrap(err, "querying stages")
	}
	return stages, nil
}

func (repo academicsRepository) QuerySujetsByPromotionID(ctx context.Context, id int) ([]academics.Sujet, error) {
	query := `SELECT s.id, s.titre, s.description, s.status, s.date_fin, s.theme, s.id_promotion, s.id_annee,
			t.type, CONCAT(agent.grade, ' ', agent.nom, ' ', agent.post_nom) AS tuteur_nom,
			agent.avatar, agent.e_mail, agent.telephone, agent.matricule, t.id_agent
		FROM sujet s
		LEFT JOIN tuteur_sujet t ON t.id_sujet = s.id
		LEFT JOIN agent ON agent.id = t.id_agent
		WHERE s.id_promotion = ? AND s.id_annee = ` + latestAnnee
	var sujets []academics.Sujet
	if err := repo.db.SelectContext(ctx, &sujets, query, id); err != nil {
		return nil, errors.Wrap(err, "querying sujets")
	}
	return sujets, nil
}

func (repo academicsRepository) QuerySections(ctx context.Context) ([]academics.Section, error) {
	query := `SELECT s.id, s.designation, s.description, s.id_mention,
			m.designation AS m_titre, m.description AS m_desc, m.id_agent,
			CONCAT(chef.nom, ' ', chef.post_nom) AS chef_nom,
			chef.prenom, chef.matricule, chef.grade, chef.telephone, chef.e_mail, chef.avatar
		FROM section s
		INNER JOIN mention m ON m.id = s.id_mention
		INNER JOIN agent chef ON chef.id = m.id_agent`
	var sections []academics.Section
	if err := repo.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	return sections, nil
}

func (repo academicsRepository) GetAgentByMatricule(ctx context.Context, matricule string) (academics.Agent, error) {
	query := `SELECT a.id, a.nom, a.post_nom, a.prenom, a.matricule, a.grade, a.fonction,
			a.telephone, a.e_mail, a.avatar, a.secure
		FROM agent a
		WHERE a.matricule = ?`
	var agent academics.Agent
	if err := repo.db.GetContext(ctx, &agent, query, matricule); err != nil {
		if err == sql.ErrNoRows {
			return academics.Agent{}, academics.ErrAgentNotFound
		}
		return academics.Agent{}, errors.Wrap(err, "getting agent by matricule")
	}
	return agent, nil
}

func (repo academicsRepository) CreateSujet(ctx context.Context, ns academics.NewSujet) (int64, error) {
	query := `INSERT INTO sujet (titre, description, status, date_fin, theme, id_promotion, id_annee)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		ns.Titre, ns.Description, ns.Status, ns.DateFin, ns.Theme, ns.IDPromotion, ns.IDAnnee)
	if err != nil {
		return 0, errors.Wrap(err, "inserting sujet")
	}
	return res.LastInsertId()
}

func (repo academicsRepository) CreateResipiendaire(ctx context.Context, nr academics.NewResipiendaire) (int64, error) {
	query := `INSERT INTO resipiendaire (id_sujet, id_etudiant, mdp, role) VALUES (?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query, nr.IDSujet, nr.IDEtudiant, nr.Mdp, nr.Role)
	if err != nil {
		return 0, errors.Wrap(err, "inserting resipiendaire")
	}
	return res.LastInsertId()
}

func (repo academicsRepository) CreateTuteur(ctx context.Context, nt academics.NewTuteur) (int64, error) {
	query := `INSERT INTO tuteur_sujet (id_sujet, id_agent, type) VALUES (?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query, nt.IDSujet, nt.IDAgent, nt.Type)
	if err != nil {
		return 0, errors.Wrap(err, "inserting tuteur link")
	}
	return res.LastInsertId()
}

func (repo academicsRepository) CreateStage(ctx context.Context, ns academics.NewStage) (int64, error) {
	query := `INSERT INTO stage (designation, id_promotion, montant, date_debut, date_fin, url_guide, id_annee, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		ns.Designation, ns.IDPromotion, ns.Montant, ns.DateDebut, ns.DateFin, ns.URLGuide, ns.IDAnnee, ns.Description)
	if err != nil {
		return 0, errors.Wrap(err, "inserting stage")
	}
	return res.LastInsertId()
}

func (repo academicsRepository) CreatePayment(ctx context.Context, np academics.NewPayment) (int64, error) {
	query := `INSERT INTO payment_sujet (id_sujet, type, amount, date_debut, date_fin) VALUES (?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query, np.IDSujet, np.Type, np.Amount, np.DateDebut, np.DateFin)
	if err != nil {
		return 0, errors.Wrap(err, "inserting payment")
	}
	return res.LastInsertId()
}

func (repo academicsRepository) CreateEtape(ctx context.Context, ne academics.NewEtape) (int64, error) {
	query := `INSERT INTO sujet_etape (id_sujet, tache, duree, date_debut) VALUES (?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query, ne.IDSujet, ne.Tache, ne.Duree, ne.DateDebut)
	if err != nil {
		return 0, errors.Wrap(err, "inserting etape")
	}
	return res.LastInsertId()
}

// updateField runs a single-column update. The column identifier MUST have
// been allow-listed by the caller; only the value is parameterized.
func (repo academicsRepository) updateField(ctx context.Context, table string, id int, column string, value interface{}) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", table, column)
	if _, err := repo.db.ExecContext(ctx, query, value, id); err != nil {
		return errors.Wrapf(err, "updating %s.%s", table, column)
	}
	return nil
}

func (repo academicsRepository) UpdateSujetField(ctx context.Context, id int, column string, value interface{}) error {
	return repo.updateField(ctx, "sujet", id, column, value)
}

func (repo academicsRepository) UpdateResipiendaireField(ctx context.Context, id int, column string, value interface{}) error {
	return repo.updateField(ctx, "resipiendaire", id, column, value)
}

func (repo academicsRepository) UpdateCommandeSujetField(ctx context.Context, id int, column string, value interface{}) error {
	return repo.updateField(ctx, "commande_sujet", id, column, value)
}
