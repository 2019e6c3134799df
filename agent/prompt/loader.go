package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/receitas.txt
	receitasRaw string

	//go:embed template/tarefas.txt
	tarefasRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router   string
	Receitas string
	Tarefas  string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming
// is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:   strings.TrimSpace(routerRaw),
		Receitas: strings.TrimSpace(receitasRaw),
		Tarefas:  strings.TrimSpace(tarefasRaw),
	}
}
