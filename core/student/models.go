package student

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/istagm/tfeapp/core"
)

// Commande type discriminators (commande_sujet family).
const (
	TypeCouverture  = "Couverture"
	TypeSolde       = "Solde"
	TypeAcompte     = "Acompte"
	TypeEnrollement = "Enrollement"
)

// Commande type discriminators (commande_stage family).
const (
	TypeLettre  = "Lettre"
	TypeLecture = "Lecture"
)

// Profile is the flat etudiant row.
type Profile struct {
	Nom           string      `db:"nom" json:"nom"`
	PostNom       string      `db:"post_nom" json:"post_nom"`
	Prenom        string      `db:"prenom" json:"prenom"`
	Matricule     string      `db:"matricule" json:"matricule"`
	Sexe          string      `db:"sexe" json:"sexe"`
	Mdp           string      `db:"mdp" json:"-"`
	Vision        null.String `db:"vision" json:"vision"`
	LieuNaissance null.String `db:"lieu_naissance" json:"lieu_naissance"`
	DateNaiss     null.String `db:"date_naiss" json:"date_naiss"`
	Telephone     null.String `db:"telephone" json:"telephone"`
	Adresse       null.String `db:"adresse" json:"adresse"`
	Email         null.String `db:"e_mail" json:"e_mail"`
	Avatar        null.String `db:"avatar" json:"avatar"`
	FraisAcad     float64     `db:"frais_acad" json:"frais_acad"`
	Solde         float64     `db:"solde" json:"solde"`
	FraisConnexe  float64     `db:"frais_connexe" json:"frais_connexe"`
	Secure        string      `db:"secure" json:"-"`
}

// SetSecure hashes and stores the student's secure code.
func (p *Profile) SetSecure(secure string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secure), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Secure = string(hash)
	return nil
}

func (p *Profile) CheckSecure(secure string) error {
	return bcrypt.CompareHashAndPassword([]byte(p.Secure), []byte(secure))
}

// Etudiant is a Profile with its identity, as fetched from the store.
type Etudiant struct {
	ID int `db:"id" json:"id"`
	Profile
}

// Activity is an activite_resipiendaire row joined with its resipiendaire.
type Activity struct {
	ID              int         `db:"id" json:"id"`
	IDResipiendaire int         `db:"id_resipiendaire" json:"id_resipiendaire"`
	Designation     string      `db:"designation" json:"designation"`
	DateActivite    string      `db:"date_activite" json:"date_activite"`
	Statut          null.String `db:"statut" json:"statut"`

	// resipiendaire r
	IDSujet    int    `db:"id_sujet" json:"id_sujet"`
	IDEtudiant int    `db:"id_etudiant" json:"id_etudiant"`
	Role       string `db:"role" json:"role"`
}

// Commande is a commande_sujet row joined with its payment and
// resipiendaire descriptors.
type Commande struct {
	ID              int         `db:"id" json:"id"`
	IDPayment       int         `db:"id_payment" json:"id_payment"`
	IDResipiendaire int         `db:"id_resipiendaire" json:"id_resipiendaire"`
	DateCmd         string      `db:"date_cmd" json:"date_cmd"`
	Phone           null.String `db:"phone" json:"phone"`
	Ref             string      `db:"ref" json:"ref"`
	OrderNumber     string      `db:"orderNumber" json:"orderNumber"`
	Description     null.String `db:"description" json:"description"`
	Statut          null.String `db:"statut" json:"statut"`

	// payment_sujet p
	IDSujet   int     `db:"id_sujet" json:"id_sujet"`
	Type      string  `db:"type" json:"type"`
	Amount    float64 `db:"amount" json:"amount"`
	DateDebut string  `db:"date_debut" json:"date_debut"`
	DateFin   string  `db:"date_fin" json:"date_fin"`

	// resipiendaire r
	Role string `db:"role" json:"role"`
}

// MarshalJSON renders an unset bucket as {} instead of a zeroed row.
func (c Commande) MarshalJSON() ([]byte, error) {
	if c.ID == 0 {
		return []byte("{}"), nil
	}
	type alias Commande
	return json.Marshal(alias(c))
}

// CommandeStage is a commande_stage row joined with its stage descriptors.
type CommandeStage struct {
	ID               int         `db:"id" json:"id"`
	IDEtudiant       int         `db:"id_etudiant" json:"id_etudiant"`
	LieuStage        string      `db:"lieu_stage" json:"lieu_stage"`
	NomDestinaire    string      `db:"nom_destinaire" json:"nom_destinaire"`
	TitreDestinaire  string      `db:"titre_destinaire" json:"titre_destinaire"`
	DateCreated      string      `db:"date_created" json:"date_created"`
	Ref              string      `db:"ref" json:"ref"`
	OrderNumber      string      `db:"orderNumber" json:"orderNumber"`
	SexeDestinataire null.String `db:"sexe_destinataire" json:"sexe_destinataire"`
	Statut           null.String `db:"statut" json:"statut"`
	Observation      null.String `db:"observation" json:"observation"`
	IDStage          int         `db:"id_stage" json:"id_stage"`
	Type             string      `db:"type" json:"type"`

	// stage s
	Stage       string      `db:"stage" json:"stage"`
	IDPromotion int         `db:"id_promotion" json:"id_promotion"`
	Montant     float64     `db:"montant" json:"montant"`
	DateDebut   string      `db:"date_debut" json:"date_debut"`
	DateFin     string      `db:"date_fin" json:"date_fin"`
	URLGuide    null.String `db:"url_guide" json:"url_guide"`
	IDAnnee     int         `db:"id_annee" json:"id_annee"`
	Description null.String `db:"description" json:"description"`
}

// MarshalJSON renders an unset bucket as {} instead of a zeroed row.
func (c CommandeStage) MarshalJSON() ([]byte, error) {
	if c.ID == 0 {
		return []byte("{}"), nil
	}
	type alias CommandeStage
	return json.Marshal(alias(c))
}

// Recharge is a balance top-up row.
type Recharge struct {
	ID           int     `db:"id" json:"id"`
	IDEtudiant   int     `db:"id_etudiant" json:"id_etudiant"`
	Montant      float64 `db:"montant" json:"montant"`
	DateRecharge string  `db:"date_recharge" json:"date_recharge"`
	Ref          string  `db:"ref" json:"ref"`
}

// Student is the denormalized per-student aggregate. The six classified
// buckets are always present; an unmatched bucket marshals as {}.
type Student struct {
	ID         int        `json:"id"`
	Profile    Profile    `json:"profile"`
	Activities []Activity `json:"activities"`

	Couverture Commande `json:"couverture"`
	TFE        Commande `json:"tfe"`
	Sujet      Commande `json:"sujet"`
	Fiche      Commande `json:"fiche"`

	Stage   CommandeStage `json:"stage"`
	Rapport CommandeStage `json:"rapport"`

	// ProfileOnly marks an entry produced by the single-row fallback:
	// activities and commandes are unset until the next full refresh.
	ProfileOnly bool `json:"profile_only,omitempty"`
}

// NewCommandeTFE contains information needed to create a commande_sujet row.
type NewCommandeTFE struct {
	IDPayment       int    `json:"id_payment" validate:"required"`
	IDResipiendaire int    `json:"id_resipiendaire" validate:"required"`
	DateCmd         string `json:"date_cmd" validate:"required"`
	Phone           string `json:"phone"`
	Ref             string `json:"ref" validate:"required"`
	OrderNumber     string `json:"orderNumber" validate:"required"`
	Description     string `json:"description"`
}

func (nc *NewCommandeTFE) Validate(validate *validator.Validate) error {
	nc.Ref = core.CleanString(nc.Ref)
	nc.OrderNumber = core.CleanString(nc.OrderNumber)
	return validate.Struct(nc)
}

// NewCommandeStage contains information needed to create a commande_stage row.
type NewCommandeStage struct {
	IDEtudiant       int    `json:"id_etudiant" validate:"required"`
	LieuStage        string `json:"lieu_stage" validate:"required"`
	NomDestinaire    string `json:"nom_destinaire" validate:"required"`
	TitreDestinaire  string `json:"titre_destinaire" validate:"required"`
	DateCreated      string `json:"date_created" validate:"required"`
	Ref              string `json:"ref" validate:"required"`
	OrderNumber      string `json:"orderNumber" validate:"required"`
	SexeDestinataire string `json:"sexe_destinataire"`
	Statut           string `json:"statut"`
	Observation      string `json:"observation"`
	IDStage          int    `json:"id_stage" validate:"required"`
	Type             string `json:"type" validate:"required,oneof=Lettre Lecture"`
}

func (nc *NewCommandeStage) Validate(validate *validator.Validate) error {
	nc.LieuStage = core.CleanString(nc.LieuStage)
	nc.NomDestinaire = core.CleanString(nc.NomDestinaire)
	nc.TitreDestinaire = core.CleanString(nc.TitreDestinaire)
	return validate.Struct(nc)
}

// NewCommandeTravail contains information needed to create a commande_travail row.
type NewCommandeTravail struct {
	IDTravail   int    `json:"id_travail" validate:"required"`
	IDEtudiant  int    `json:"id_etudiant" validate:"required"`
	Statut      string `json:"statut" validate:"required"`
	DateCreated string `json:"date_created" validate:"required"`
	Reference   string `json:"reference" validate:"required"`
	Resultat    string `json:"resultat"`
	Observation string `json:"observation"`
	Resolution  string `json:"resolution"`
}

func (nc *NewCommandeTravail) Validate(validate *validator.Validate) error {
	nc.Reference = core.CleanString(nc.Reference)
	return validate.Struct(nc)
}

// NewCommandeNote contains information needed to create a commande_note row.
type NewCommandeNote struct {
	IDCharge    int    `json:"id_charge" validate:"required"`
	IDEtudiant  int    `json:"id_etudiant" validate:"required"`
	DateCreated string `json:"date_created" validate:"required"`
	Statut      string `json:"statut" validate:"required"`
	Reference   string `json:"reference" validate:"required"`
}

func (nc *NewCommandeNote) Validate(validate *validator.Validate) error {
	nc.Reference = core.CleanString(nc.Reference)
	return validate.Struct(nc)
}
