package roster

import "github.com/mcdev12/liveballot/go/internal/models"

// DefaultCandidates is the ballot used when no roster file is configured
func DefaultCandidates() []models.Candidate {
	return []models.Candidate{
		{ID: 1, Name: "Yvan Anthony", Party: "BAN-KAI... ASHISOGI JIZO", DisplayColor: "blue", ImagePath: "/antony.jpeg"},
		{ID: 2, Name: "Lo Cosmo", Party: "Lo Cosmo", DisplayColor: "indigo", ImagePath: "/Lo Cosmo.jpeg"},
		{ID: 3, Name: "BLK42", Party: "Créateur de contenu", DisplayColor: "red", ImagePath: "/blk42.jpeg"},
		{ID: 4, Name: "Smooki", Party: "Créateur de contenu", DisplayColor: "green", ImagePath: "/smooki.jpeg"},
		{ID: 5, Name: "Mister Tyga", Party: "Web-Chroniquer", DisplayColor: "purple", ImagePath: "/Mister.jpeg"},
		{ID: 6, Name: "Lina Kadjo", Party: "", DisplayColor: "pink", ImagePath: "/lina.jpeg"},
		{ID: 7, Name: "Sergio Ramos 1X", Party: "1⚔️ KAMIKAZE", DisplayColor: "yellow", ImagePath: "/Sergio Ramos.jpeg"},
		{ID: 8, Name: "Carine N'guessan", Party: "L'Amazone du Chetté", DisplayColor: "indigo", ImagePath: "/Carine.jpeg"},
		{ID: 9, Name: "Danielle Gnamba", Party: "Personne d'impact", DisplayColor: "teal", ImagePath: "/Danielle gnamba.jpeg"},
		{ID: 10, Name: "Lil 1X gnanmien Okocha", Party: "Parti Énergique", DisplayColor: "orange", ImagePath: "/okocha.jpeg"},
		{ID: 11, Name: "Tapily Mohamed", Party: "La hawla wala quwata illa billa", DisplayColor: "cyan", ImagePath: "/tapy mohamed.jpeg"},
		{ID: 12, Name: "Carine Giina", Party: "", DisplayColor: "rose", ImagePath: "/Carine giina.jpeg"},
		{ID: 13, Name: "Guichou", Party: "Ascende Superius", DisplayColor: "lime", ImagePath: "/Guichou.jpeg"},
		{ID: 14, Name: "DBZ a main levée", Party: "La main levée suprême", DisplayColor: "amber", ImagePath: "/dbz.jpeg"},
		{ID: 15, Name: "Linda la machette", Party: "Linda lamachette", DisplayColor: "emerald", ImagePath: "/linda.jpeg"},
	}
}
