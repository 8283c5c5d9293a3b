package router

// Canned Catalan replies for questions the pipeline refuses to process.
// These are returned as direct decisions; the refusal prefix is stable so
// clients can detect a guardrail hit.
const (
	// RefusalPrefix starts every guardrail refusal.
	RefusalPrefix = "Ho sento, només puc respondre preguntes sobre el món casteller"

	MsgGuardrail = RefusalPrefix + ": colles, castells, diades, actuacions i el Concurs de Castells. Prova amb una pregunta sobre aquest tema!"

	MsgLanguage = "Ho sento, de moment només entenc preguntes en català, castellà o francès. Si us plau, torna a formular la pregunta en una d'aquestes llengües."

	MsgTooLong = "La pregunta és una mica massa llarga. Si us plau, formula-la de manera més breu i directa."

	MsgUnsure = "Ho sento, no estic segur de com respondre aquesta pregunta. Pots provar de reformular-la o fer-la més concreta?"
)
