package tool

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	contractx "github.com/codcoz/chefia/agent/contract"
	embeddingsx "github.com/codcoz/chefia/pkg/embeddings"
)

const (
	recipeCollection  = "receitas"
	recipeVectorIndex = "receita_embedding_index"
	recipeVectorPath  = "embedding"

	// Search breadth for the ANN stage and the number of hits handed back to
	// the specialist.
	recipeNumCandidates = 100
	recipeLimit         = 3
)

type recipeQueryArgs struct {
	NomeReceita string `json:"nome_receita"`
	Ingrediente string `json:"ingrediente"`
	Descricao   string `json:"descricao"`
	ModoPreparo string `json:"modo_preparo"`
}

type recipeIngredient struct {
	Nome       string  `bson:"nome" json:"nome"`
	Quantidade float64 `bson:"quantidade" json:"quantidade,omitempty"`
	Unidade    string  `bson:"unidade" json:"unidade,omitempty"`
}

type recipeDoc struct {
	Nome         string             `bson:"nome" json:"nome"`
	Descricao    string             `bson:"descricao" json:"descricao,omitempty"`
	Ingredientes []recipeIngredient `bson:"ingredientes" json:"ingredientes,omitempty"`
	ModoPreparo  []string           `bson:"modoPreparo" json:"modo_preparo,omitempty"`
	Rendimento   string             `bson:"rendimento" json:"rendimento,omitempty"`
	Score        float64            `bson:"score" json:"score"`
}

// RecipeStore answers recipe lookups with a vector search over the tenant's
// recipe collection.
type RecipeStore struct {
	coll     *mongo.Collection
	embedder embeddingsx.Embedder
}

func NewRecipeStore(db *mongo.Database, embedder embeddingsx.Embedder) *RecipeStore {
	return &RecipeStore{
		coll:     db.Collection(recipeCollection),
		embedder: embedder,
	}
}

// Query embeds the textual filters and runs an ANN search scoped to the
// tenant. At least one filter must be present so the embedding has content.
func (s *RecipeStore) Query(ctx context.Context, empresaID int64, args map[string]any) contractx.ToolResult {
	var in recipeQueryArgs
	if err := decodeArgs(args, &in); err != nil {
		return contractx.ToolResult{Tool: ToolQueryReceitas, Error: err.Error()}
	}

	text := buildRecipeQueryText(in)
	if text == "" {
		return contractx.ToolResult{
			Tool:  ToolQueryReceitas,
			Error: "informe ao menos um filtro: nome_receita, ingrediente, descricao ou modo_preparo",
		}
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return contractx.ToolResult{
			Tool:  ToolQueryReceitas,
			Error: fmt.Sprintf("falha ao gerar embedding da consulta: %v", err),
		}
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: recipeVectorIndex},
			{Key: "path", Value: recipeVectorPath},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: recipeNumCandidates},
			{Key: "limit", Value: recipeLimit},
			{Key: "filter", Value: bson.D{{Key: "empresaId", Value: empresaID}}},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "nome", Value: 1},
			{Key: "descricao", Value: 1},
			{Key: "ingredientes", Value: 1},
			{Key: "modoPreparo", Value: 1},
			{Key: "rendimento", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline, options.Aggregate())
	if err != nil {
		return contractx.ToolResult{
			Tool:  ToolQueryReceitas,
			Error: fmt.Sprintf("falha ao consultar receitas: %v", err),
		}
	}
	defer cursor.Close(ctx)

	var docs []recipeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return contractx.ToolResult{
			Tool:  ToolQueryReceitas,
			Error: fmt.Sprintf("falha ao ler receitas: %v", err),
		}
	}

	return contractx.ToolResult{
		Tool: ToolQueryReceitas,
		Result: map[string]any{
			"consulta": text,
			"total":    len(docs),
			"receitas": summarizeRecipes(docs),
		},
	}
}

// buildRecipeQueryText mirrors the layout recipes were embedded with, so
// query vectors land in the same space as the stored documents.
func buildRecipeQueryText(in recipeQueryArgs) string {
	var parts []string
	if v := strings.TrimSpace(in.NomeReceita); v != "" {
		parts = append(parts, "Nome: "+v)
	}
	if v := strings.TrimSpace(in.Descricao); v != "" {
		parts = append(parts, "Descrição: "+v)
	}
	if v := strings.TrimSpace(in.Ingrediente); v != "" {
		parts = append(parts, "Ingrediente(s): "+v)
	}
	if v := strings.TrimSpace(in.ModoPreparo); v != "" {
		parts = append(parts, "Modo de preparo: "+v)
	}
	return strings.Join(parts, "\n")
}

func summarizeRecipes(docs []recipeDoc) []map[string]any {
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		ingredientes := make([]string, 0, len(doc.Ingredientes))
		for _, ing := range doc.Ingredientes {
			label := strings.TrimSpace(ing.Nome)
			if label == "" {
				continue
			}
			if ing.Quantidade > 0 {
				label = fmt.Sprintf("%s (%s %s)", label,
					strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", ing.Quantidade), "0"), "."),
					strings.TrimSpace(ing.Unidade))
				label = strings.TrimSpace(label)
			}
			ingredientes = append(ingredientes, label)
		}

		out = append(out, map[string]any{
			"nome":         doc.Nome,
			"descricao":    doc.Descricao,
			"ingredientes": strings.Join(ingredientes, ", "),
			"modo_preparo": strings.Join(doc.ModoPreparo, " | "),
			"rendimento":   doc.Rendimento,
			"score":        doc.Score,
		})
	}
	return out
}
