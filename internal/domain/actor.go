package domain

// ActorRole é o papel do ator autenticado (token emitido externamente).
type ActorRole string

const (
	RoleAdmin    ActorRole = "admin"
	RoleManager  ActorRole = "manager"
	RoleOperator ActorRole = "operator"
	RoleService  ActorRole = "service"
)

// SystemActorID identifica mudanças originadas por processos internos (sweep, mensageria).
const SystemActorID = "system"
