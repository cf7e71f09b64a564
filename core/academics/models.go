package academics

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/istagm/tfeapp/core"
)

// Section is a programme node: a department grouping promotions, carrying
// its mention and chef descriptors denormalized from the mention/agent joins.
type Section struct {
	ID          int         `db:"id" json:"id"`
	Designation string      `db:"designation" json:"designation"`
	Description null.String `db:"description" json:"description"`
	IDMention   int         `db:"id_mention" json:"id_mention"`

	// mention m
	MentionTitre string      `db:"m_titre" json:"m_titre"`
	MentionDesc  null.String `db:"m_desc" json:"m_desc"`
	IDAgent      int         `db:"id_agent" json:"id_agent"`

	// agent chef
	ChefNom       string      `db:"chef_nom" json:"chef_nom"`
	ChefPrenom    null.String `db:"prenom" json:"prenom"`
	ChefMatricule null.String `db:"matricule" json:"matricule"`
	ChefGrade     null.String `db:"grade" json:"grade"`
	ChefTelephone null.String `db:"telephone" json:"telephone"`
	ChefEmail     null.String `db:"e_mail" json:"e_mail"`
	ChefAvatar    null.String `db:"avatar" json:"avatar"`

	Promotions []Promotion `db:"-" json:"promotions"`
}

// Promotion is a cohort within a section, joined with its niveau descriptor.
// Child collections are filled during a tree rebuild.
type Promotion struct {
	ID          int    `db:"id" json:"id"`
	Designation string `db:"designation" json:"designation"`
	IDSection   int    `db:"id_section" json:"id_section"`
	IDNiveau    int    `db:"id_niveau" json:"id_niveau"`

	// niveau n
	Classe  string `db:"classe" json:"classe"`
	Systeme string `db:"systeme" json:"systeme"`

	Travaux []Travail `db:"-" json:"travaux"`
	Notes   []Note    `db:"-" json:"notes"`
	Stages  []Stage   `db:"-" json:"stages"`
	Sujets  []Sujet   `db:"-" json:"sujets"`
}

// Travail is an assignment row joined with its course descriptors.
type Travail struct {
	ID         int         `db:"id" json:"id"`
	IDCharge   int         `db:"id_charge" json:"id_charge"`
	Titre      string      `db:"titre" json:"titre"`
	Consigne   null.String `db:"consigne" json:"consigne"`
	DateRemise null.String `db:"date_remise" json:"date_remise"`

	// charge_horaire c / matiere m / unite u
	Cours         string      `db:"cours" json:"cours"`
	Credit        int         `db:"credit" json:"credit"`
	Semestre      string      `db:"semestre" json:"semestre"`
	Unite         string      `db:"unite" json:"unite"`
	PenalitesTrvx null.String `db:"penalites_trvx" json:"penalites_trvx"`
}

// Note is a charge_horaire row carrying published course notes.
type Note struct {
	ID          int         `db:"id" json:"id"`
	IDMatiere   int         `db:"id_matiere" json:"id_matiere"`
	URLDocument null.String `db:"url_document" json:"url_document"`

	// matiere m / unite u
	Cours    string `db:"cours" json:"cours"`
	Credit   int    `db:"credit" json:"credit"`
	Semestre string `db:"semestre" json:"semestre"`
	Unite    string `db:"unite" json:"unite"`
}

// Stage is an internship offer scoped to a promotion and academic year.
type Stage struct {
	ID          int         `db:"id" json:"id"`
	Designation string      `db:"designation" json:"designation"`
	IDPromotion int         `db:"id_promotion" json:"id_promotion"`
	Montant     float64     `db:"montant" json:"montant"`
	DateDebut   string      `db:"date_debut" json:"date_debut"`
	DateFin     string      `db:"date_fin" json:"date_fin"`
	URLGuide    null.String `db:"url_guide" json:"url_guide"`
	IDAnnee     int         `db:"id_annee" json:"id_annee"`
	Description null.String `db:"description" json:"description"`
}

// Sujet is a thesis subject joined with its (optional) tutor link.
type Sujet struct {
	ID          int    `db:"id" json:"id"`
	Titre       string `db:"titre" json:"titre"`
	Description string `db:"description" json:"description"`
	Status      string `db:"status" json:"status"`
	DateFin     string `db:"date_fin" json:"date_fin"`
	Theme       string `db:"theme" json:"theme"`
	IDPromotion int    `db:"id_promotion" json:"id_promotion"`
	IDAnnee     int    `db:"id_annee" json:"id_annee"`

	// tuteur_sujet t / agent (LEFT JOINs; all nullable)
	Type            null.String `db:"type" json:"type"`
	TuteurNom       null.String `db:"tuteur_nom" json:"tuteur_nom"`
	TuteurAvatar    null.String `db:"avatar" json:"avatar"`
	TuteurEmail     null.String `db:"e_mail" json:"e_mail"`
	TuteurTelephone null.String `db:"telephone" json:"telephone"`
	TuteurMatricule null.String `db:"matricule" json:"matricule"`
	IDAgent         null.Int    `db:"id_agent" json:"id_agent"`
}

// Agent is a staff row, used for tutor/director authentication.
type Agent struct {
	ID        int         `db:"id" json:"id"`
	Nom       string      `db:"nom" json:"nom"`
	PostNom   string      `db:"post_nom" json:"post_nom"`
	Prenom    null.String `db:"prenom" json:"prenom"`
	Matricule string      `db:"matricule" json:"matricule"`
	Grade     null.String `db:"grade" json:"grade"`
	Fonction  string      `db:"fonction" json:"fonction"` // directeur | tuteur | agent | admin
	Telephone null.String `db:"telephone" json:"telephone"`
	Email     null.String `db:"e_mail" json:"e_mail"`
	Avatar    null.String `db:"avatar" json:"avatar"`
	Secure    string      `db:"secure" json:"-"`
}

func (a *Agent) CheckSecure(secure string) error {
	return bcrypt.CompareHashAndPassword([]byte(a.Secure), []byte(secure))
}

// NewSujet contains information needed to create a thesis subject.
type NewSujet struct {
	Titre       string `json:"titre" validate:"required"`
	Description string `json:"description" validate:"required"`
	Status      string `json:"status" validate:"required"`
	DateFin     string `json:"date_fin" validate:"required"`
	Theme       string `json:"theme" validate:"required"`
	IDPromotion int    `json:"id_promotion" validate:"required"`
	IDAnnee     int    `json:"id_annee" validate:"required"`
}

func (ns *NewSujet) Validate(validate *validator.Validate) error {
	ns.Titre = core.CleanString(ns.Titre)
	ns.Description = core.CleanString(ns.Description)
	ns.Status = core.CleanString(ns.Status)
	ns.Theme = core.CleanString(ns.Theme)
	return validate.Struct(ns)
}

// NewResipiendaire links a student to a subject.
type NewResipiendaire struct {
	IDSujet    int    `json:"id_sujet" validate:"required"`
	IDEtudiant int    `json:"id_etudiant" validate:"required"`
	Mdp        string `json:"mdp" validate:"required"`
	Role       string `json:"role" validate:"required"`
}

func (nr *NewResipiendaire) Validate(validate *validator.Validate) error {
	nr.Role = core.CleanString(nr.Role, true /* lower */)
	return validate.Struct(nr)
}

// NewTuteur links an agent to a subject as tutor or co-tutor.
type NewTuteur struct {
	IDSujet int    `json:"id_sujet" validate:"required"`
	IDAgent int    `json:"id_agent" validate:"required"`
	Type    string `json:"type" validate:"required"`
}

func (nt *NewTuteur) Validate(validate *validator.Validate) error {
	nt.Type = core.CleanString(nt.Type)
	return validate.Struct(nt)
}

// NewStage contains information needed to create an internship offer.
// url_guide and description are the only optional columns.
type NewStage struct {
	Designation string  `json:"designation" validate:"required"`
	IDPromotion int     `json:"id_promotion" validate:"required"`
	Montant     float64 `json:"montant" validate:"required"`
	DateDebut   string  `json:"date_debut" validate:"required"`
	DateFin     string  `json:"date_fin" validate:"required"`
	URLGuide    string  `json:"url_guide"`
	IDAnnee     int     `json:"id_annee" validate:"required"`
	Description string  `json:"description"`
}

func (ns *NewStage) Validate(validate *validator.Validate) error {
	ns.Designation = core.CleanString(ns.Designation)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

// NewPayment records a payment line against a subject.
type NewPayment struct {
	IDSujet   int     `json:"id_sujet" validate:"required"`
	Type      string  `json:"type" validate:"required,oneof=Couverture Solde Acompte Enrollement"`
	Amount    float64 `json:"amount" validate:"required"`
	DateDebut string  `json:"date_debut" validate:"required"`
	DateFin   string  `json:"date_fin" validate:"required"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Type = core.CleanString(np.Type)
	return validate.Struct(np)
}

// NewEtape adds a workflow step to a subject.
type NewEtape struct {
	IDSujet   int    `json:"id_sujet" validate:"required"`
	Tache     string `json:"tache" validate:"required"`
	Duree     string `json:"duree" validate:"required"`
	DateDebut string `json:"date_debut" validate:"required"`
}

func (ne *NewEtape) Validate(validate *validator.Validate) error {
	ne.Tache = core.CleanString(ne.Tache)
	return validate.Struct(ne)
}
