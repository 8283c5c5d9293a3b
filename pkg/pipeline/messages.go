package pipeline

// Canned Catalan messages for expected non-answers and failures. Raw errors
// never reach the user; they are logged with the request id only.
const (
	// MsgNoResults answers SQL paths whose query matched nothing.
	MsgNoResults = "No he trobat cap resultat que coincideixi amb la teva pregunta. Potser pots provar amb una altra colla, castell o any."

	// MsgNoRelevantInfo answers RAG paths with nothing above the floor.
	MsgNoRelevantInfo = "No tinc prou informació sobre aquest tema per donar-te una bona resposta. Prova de reformular la pregunta."

	// MsgGenericError covers any internal failure.
	MsgGenericError = "Ho sento, hi ha hagut un problema processant la teva pregunta. Torna-ho a provar d'aquí a uns moments."
)

// RouteError marks responses produced by the failure path.
const RouteError = "error"
