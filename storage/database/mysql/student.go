package mysqlrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/istagm/tfeapp/core/student"
)

const etudiantColumns = `e.id, e.nom, e.post_nom, e.prenom, e.matricule, e.sexe, e.mdp, e.vision,
	e.lieu_naissance, e.date_naiss, e.telephone, e.adresse, e.e_mail, e.avatar,
	COALESCE(e.frais_acad, 0) AS frais_acad, COALESCE(e.solde, 0) AS solde,
	COALESCE(e.frais_connexe, 0) AS frais_connexe, COALESCE(e.secure, '') AS secure`

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

// trapNoRowsErr maps "no rows" to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) QueryEtudiants(ctx context.Context) ([]student.Etudiant, error) {
	query := `SELECT ` + etudiantColumns + ` FROM etudiant e`
	var etudiants []student.Etudiant
	if err := repo.db.SelectContext(ctx, &etudiants, query); err != nil {
		return nil, errors.Wrap(err, "querying etudiants")
	}
	return etudiants, nil
}

func (repo studentRepository) GetEtudiantByID(ctx context.Context, id int) (student.Etudiant, error) {
	query := `SELECT ` + etudiantColumns + ` FROM etudiant e WHERE e.id = ?`
	var et student.Etudiant
	if err := repo.db.GetContext(ctx, &et, query, id); err != nil {
		return student.Etudiant{}, repo.trapNoRowsErr(err, "getting etudiant by ID")
	}
	return et, nil
}

func (repo studentRepository) GetEtudiantByMatricule(ctx context.Context, matricule string) (student.Etudiant, error) {
	query := `SELECT ` + etudiantColumns + ` FROM etudiant e WHERE e.matricule = ?`
	var et student.Etudiant
	if err := repo.db.GetContext(ctx, &et, query, matricule); err != nil {
		return student.Etudiant{}, repo.trapNoRowsErr(err, "getting etudiant by matricule")
	}
	return et, nil
}

func (repo studentRepository) QueryActivitiesByEtudiantID(ctx context.Context, id int) ([]student.Activity, error) {
	query := `SELECT a.id, a.id_resipiendaire, a.designation, a.date_activite, a.statut,
			r.id_sujet, r.id_etudiant, r.role
		FROM activite_resipiendaire a
		INNER JOIN resipiendaire r ON r.id = a.id_resipiendaire
		WHERE r.id_etudiant = ?
		ORDER BY a.id ASC`
	var activities []student.Activity
	if err := repo.db.SelectContext(ctx, &activities, query, id); err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	return activities, nil
}

func (repo studentRepository) QueryCommandesTFEByEtudiantID(ctx context.Context, id int) ([]student.Commande, error) {
	// ORDER BY pins "first match" classification to the oldest row
	query := `SELECT cmd.id, cmd.id_payment, cmd.id_resipiendaire, cmd.date_cmd, cmd.phone, cmd.ref,
			cmd.orderNumber, cmd.description, cmd.statut,
			p.id_sujet, p.type, p.amount, p.date_debut, p.date_fin, r.role
		FROM commande_sujet cmd
		INNER JOIN payment_sujet p ON p.id = cmd.id_payment
		INNER JOIN resipiendaire r ON r.id = cmd.id_resipiendaire
		WHERE r.id_etudiant = ?
		ORDER BY cmd.id ASC`
	var commandes []student.Commande
	if err := repo.db.SelectContext(ctx, &commandes, query, id); err != nil {
		return nil, errors.Wrap(err, "querying commandes TFE")
	}
	return commandes, nil
}

func (repo studentRepository) QueryCommandesStageByEtudiantID(ctx context.Context, id int) ([]student.CommandeStage, error) {
	query := `SELECT c.id, c.id_etudiant, c.lieu_stage, c.nom_destinaire, c.titre_destinaire,
			c.date_created, c.ref, c.orderNumber, c.sexe_destinataire, c.statut, c.observation,
			c.id_stage, c.type,
			s.designation AS stage, s.id_promotion, s.montant, s.date_debut, s.date_fin,
			s.url_guide, s.id_annee, s.description
		FROM commande_stage c
		INNER JOIN stage s ON s.id = c.id_stage
		WHERE c.id_etudiant = ? AND s.id_annee = ` + latestAnnee + `
		ORDER BY c.id ASC`
	var commandes []student.CommandeStage
	if err := repo.db.SelectContext(ctx, &commandes, query, id); err != nil {
		return nil, errors.Wrap(err, "querying commandes stage")
	}
	return commandes, nil
}

func (repo studentRepository) QueryRechargesByEtudiantID(ctx context.Context, id int) ([]student.Recharge, error) {
	query := `SELECT r.id, r.id_etudiant, r.montant, r.date_recharge, r.ref
		FROM recharge r
		WHERE r.id_etudiant = ?
		ORDER BY r.id DESC`
	var recharges []student.Recharge
	if err := repo.db.SelectContext(ctx, &recharges, query, id); err != nil {
		return nil, errors.Wrap(err, "querying recharges")
	}
	return recharges, nil
}

func (repo studentRepository) CreateCommandeTFE(ctx context.Context, nc student.NewCommandeTFE) (int64, error) {
	query := `INSERT INTO commande_sujet (id_payment, id_resipiendaire, date_cmd, phone, ref, orderNumber, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		nc.IDPayment, nc.IDResipiendaire, nc.DateCmd, nc.Phone, nc.Ref, nc.OrderNumber, nc.Description)
	if err != nil {
		return 0, errors.Wrap(err, "inserting commande TFE")
	}
	return res.LastInsertId()
}

func (repo studentRepository) CreateCommandeStage(ctx context.Context, nc student.NewCommandeStage) (int64, error) {
	query := `INSERT INTO commande_stage (id_etudiant, lieu_stage, nom_destinaire, titre_destinaire, date_created,
			ref, orderNumber, sexe_destinataire, statut, observation, id_stage, type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		nc.IDEtudiant, nc.LieuStage, nc.NomDestinaire, nc.TitreDestinaire, nc.DateCreated,
		nc.Ref, nc.OrderNumber, nc.SexeDestinataire, nc.Statut, nc.Observation, nc.IDStage, nc.Type)
	if err != nil {
		return 0, errors.Wrap(err, "inserting commande stage")
	}
	return res.LastInsertId()
}

func (repo studentRepository) CreateCommandeTravail(ctx context.Context, nc student.NewCommandeTravail) (int64, error) {
	query := `INSERT INTO commande_travail (id_travail, id_etudiant, statut, date_created, reference, resultat, observation, resolution)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		nc.IDTravail, nc.IDEtudiant, nc.Statut, nc.DateCreated, nc.Reference, nc.Resultat, nc.Observation, nc.Resolution)
	if err != nil {
		return 0, errors.Wrap(err, "inserting commande travail")
	}
	return res.LastInsertId()
}

func (repo studentRepository) CreateCommandeNote(ctx context.Context, nc student.NewCommandeNote) (int64, error) {
	query := `INSERT INTO commande_note (id_charge, id_etudiant, date_created, statut, reference)
		VALUES (?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		nc.IDCharge, nc.IDEtudiant, nc.DateCreated, nc.Statut, nc.Reference)
	if err != nil {
		return 0, errors.Wrap(err, "inserting commande note")
	}
	return res.LastInsertId()
}

// UpdateEtudiantField runs a single-column update. The column identifier
// MUST have been allow-listed by the caller; only the value is parameterized.
func (repo studentRepository) UpdateEtudiantField(ctx context.Context, id int, column string, value interface{}) error {
	query := fmt.Sprintf("UPDATE etudiant SET %s = ? WHERE id = ?", column)
	if _, err := repo.db.ExecContext(ctx, query, value, id); err != nil {
		return errors.Wrapf(err, "updating etudiant.%s", column)
	}
	return nil
}
