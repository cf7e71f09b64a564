package dummydb

import (
	"sync"

	"github.com/istagm/tfeapp/core/academics"
	"github.com/istagm/tfeapp/core/student"
)

type (
	DB struct {
		academics *academicsTables
		student   *studentTables
	}

	academicsTables struct {
		sync.RWMutex
		promotions  []academics.Promotion
		sections    []academics.Section
		travaux     map[int][]academics.Travail // by promotion id
		notes       map[int][]academics.Note
		stages      map[int][]academics.Stage
		sujets      map[int][]academics.Sujet
		agents      map[string]academics.Agent // by matricule
		latestAnnee int
		pkCount     int64
	}

	studentTables struct {
		sync.RWMutex
		etudiants      map[int]student.Etudiant
		activities     map[int][]student.Activity // by etudiant id
		commandesTFE   map[int][]student.Commande
		commandesStage map[int][]student.CommandeStage
		recharges      map[int][]student.Recharge
		pkCount        int64
	}
)

func Open() (*DB, error) {
	db := &DB{
		academics: &academicsTables{
			travaux: make(map[int][]academics.Travail),
			notes:   make(map[int][]academics.Note),
			stages:  make(map[int][]academics.Stage),
			sujets:  make(map[int][]academics.Sujet),
			agents:  make(map[string]academics.Agent),
		},
		student: &studentTables{
			etudiants:      make(map[int]student.Etudiant),
			activities:     make(map[int][]student.Activity),
			commandesTFE:   make(map[int][]student.Commande),
			commandesStage: make(map[int][]student.CommandeStage),
			recharges:      make(map[int][]student.Recharge),
		},
	}
	return db, nil
}
