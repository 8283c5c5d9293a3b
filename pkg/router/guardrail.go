package router

import (
	"strings"

	"github.com/castellsqa/enxaneta/pkg/vocab"
)

// Three closed keyword lists checked by substring against the folded
// question. A hit on any list short-circuits the whole pipeline with a
// canned refusal.

var offTopicKeywords = []string{
	"futbol", "basquet", "tennis", "formula 1", "motogp",
	"recepta", "cuinar", "restaurant",
	"pel·licula", "pellicula", "serie de televisio", "netflix",
	"borsa", "criptomoned", "bitcoin", "inverteix",
	"eleccions", "partit politic", "president del govern",
	"horoscop", "loteria",
	"medicament", "diagnostic", "malaltia",
}

var metaPromptKeywords = []string{
	"ignore previous instructions",
	"ignore all previous",
	"ignora les instruccions",
	"ignora las instrucciones",
	"system prompt",
	"jailbreak",
	"act as",
	"pretend you are",
	"developer mode",
	"les teves instruccions",
}

var techKeywords = []string{
	"python", "javascript", "typescript", "java ", "golang",
	"write code", "escriu codi", "programa en",
	"sql injection", "drop table", "select * from",
	"api key", "contrasenya", "password",
	"html", "css", "docker", "kubernetes",
}

// CheckGuardrail reports whether the question trips any keyword list.
func CheckGuardrail(question string) bool {
	folded := vocab.Fold(question)
	for _, list := range [][]string{offTopicKeywords, metaPromptKeywords, techKeywords} {
		for _, kw := range list {
			if strings.Contains(folded, kw) {
				return true
			}
		}
	}
	return false
}
