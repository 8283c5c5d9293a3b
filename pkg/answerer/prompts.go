package answerer

import (
	"github.com/castellsqa/enxaneta/pkg/router"
)

// Every strategy gets its own prompt triplet. The system message carries the
// persona; the developer message carries the formatting contract the
// post-processor enforces as a backstop.

const systemPrompt = `Ets un expert del món casteller: coneixes les colles, els castells, les diades i el Concurs de Castells. Respons sempre en català, amb to proper i rigorós.`

const baseDeveloperPrompt = `Regles estrictes de format:
- Respon en text markdown pla. MAI facis servir taules ni llistes amb guions o numerades.
- Escriu en paràgrafs.
- Pots destacar en **negreta** els noms de colles, castells i xifres clau, com a màxim quatre destacats.
- No donis opinions personals ni facis judicis de valor.
- No inventis dades que no siguin al context proporcionat.`

// paragraphHints tunes the expected answer length per strategy.
var paragraphHints = map[string]string{
	string(router.KindBestEvent):              "Respon en un o dos paràgrafs, destacant la diada i la puntuació.",
	string(router.KindBestConstruction):       "Respon en un o dos paràgrafs, destacant els castells més valuosos.",
	string(router.KindConstructionHistory):    "Respon en un o dos paràgrafs resumint quan i on s'ha fet.",
	string(router.KindLocationPerformances):   "Respon en un o dos paràgrafs sobre les actuacions en aquest lloc.",
	string(router.KindFirstConstruction):      "Respon en un sol paràgraf breu amb la data i el lloc.",
	string(router.KindConstructionStatistics): "Respon en dos paràgrafs: primer les xifres, després les colles.",
	string(router.KindYearSummary):            "Respon en dos paràgrafs resumint la temporada.",
	string(router.KindContestRanking):         "Respon en un o dos paràgrafs amb les posicions i punts.",
	string(router.KindContestHistory):         "Respon en dos paràgrafs sobre la trajectòria al concurs.",
	string(router.KindCustom):                 "Respon en un o dos paràgrafs.",
	StrategyRAG:                               "Respon en dos o tres paràgrafs a partir dels documents.",
	StrategyHybrid:                            "Respon en dos o tres paràgrafs combinant les dades i els documents.",
}

// Strategy keys for the non-SQL paths.
const (
	StrategyRAG    = "rag"
	StrategyHybrid = "hybrid"
)

func developerPrompt(strategy string) string {
	hint, ok := paragraphHints[strategy]
	if !ok {
		hint = paragraphHints[string(router.KindCustom)]
	}
	return baseDeveloperPrompt + "\n- " + hint
}
