package router

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/castellsqa/enxaneta/pkg/vocab"
)

// Pattern table for the fuzzy post-classifier. Each query kind lists
// question shapes it recognizes; matching is partial-ratio over folded text
// so inflections and extra words do not matter much.
var queryKindPatterns = map[QueryKind][]string{
	KindBestEvent: {
		"millor diada",
		"millor actuacio",
		"quina va ser la millor diada",
		"millors actuacions de la colla",
	},
	KindBestConstruction: {
		"millor castell",
		"millors castells",
		"castell mes gran",
		"castells mes importants",
	},
	KindConstructionHistory: {
		"quants ha fet",
		"quantes vegades ha descarregat",
		"historial del castell",
		"quan ha fet el castell",
		"quants castells ha descarregat",
	},
	KindLocationPerformances: {
		"actuacions a",
		"diades a la ciutat",
		"que ha fet a",
		"castells a la placa",
	},
	KindFirstConstruction: {
		"primer cop",
		"primera vegada",
		"quan es va descarregar per primera vegada",
		"quin any es va fer el primer",
	},
	KindConstructionStatistics: {
		"estadistiques del castell",
		"quantes colles han fet",
		"qui ha descarregat el castell",
		"dades del castell",
	},
	KindYearSummary: {
		"resum de la temporada",
		"com va anar l'any",
		"millors castells de l'any",
		"temporada castellera",
	},
	KindContestRanking: {
		"classificacio del concurs",
		"qui va guanyar el concurs",
		"posicio al concurs",
		"puntuacio del concurs",
	},
	KindContestHistory: {
		"historial del concurs",
		"edicions del concurs",
		"resultats del concurs",
		"com ha anat al concurs",
	},
}

// Promotion thresholds for decisions that extracted entities despite being
// classified as direct or rag; a high-confidence structured match flips them
// to the SQL path.
const (
	promoteDirectThreshold = 0.85
	promoteRAGThreshold    = 0.80
	defaultKindThreshold   = 0.30
)

// classifyQueryKind scores the question against every pattern and returns
// the best kind with its normalized score in [0,1]. Iteration over kinds is
// ordered so ties resolve deterministically.
func classifyQueryKind(question string) (QueryKind, float64) {
	folded := vocab.Fold(question)

	ordered := []QueryKind{
		KindBestEvent, KindBestConstruction, KindConstructionHistory,
		KindLocationPerformances, KindFirstConstruction,
		KindConstructionStatistics, KindYearSummary,
		KindContestRanking, KindContestHistory,
	}

	var bestKind QueryKind
	var bestScore float64
	for _, kind := range ordered {
		for _, pattern := range queryKindPatterns[kind] {
			score := float64(fuzzy.PartialRatio(pattern, folded)) / 100
			if score > bestScore {
				bestKind = kind
				bestScore = score
			}
		}
	}
	return bestKind, bestScore
}
