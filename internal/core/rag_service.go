package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/FranAva001/CarMate/internal/search"
	"github.com/FranAva001/CarMate/internal/vectorstore"
)

// contextSeparator joins the individual retrieved records inside each
// context block.
const contextSeparator = "\n---\n"

// promptTemplate frames the retrieved context: the persona and ground
// rules, then the documents other users submitted (to weigh first), then
// the catalog matches, then the literal user question. The euro wording is
// an instruction to the model, prices are not converted here.
const promptTemplate = `
        Sei CarMate, un assistente virtuale che aiuta nella scelta di una macchina in base alle esigenze specificate dall'utente.
        Esprimiti sempre con un tono amichevole e sicuro, instaurando un rapporto di fiducia con l'utente.
        Non inventare risposte, ma attieniti ai dati posseduti per rispondere e comunica qualora questi fossero mancanti.
        Cerca di essere quanto più coerente è possibile alla richiesta fatta dall'utente.
        Al posto di esprimere i prezzi in dollari, esprimili in euro. Non intendo convertendoli, ma sostituendo dollari con euro.
        Hai a disposizione i risultati consigliati da altri utenti, da considerare per primi: %s
        Per ulteriore supporto hai a disposizione queste fonti: %s.
        Domanda dell'utente: %s`

// RAGService assembles the retrieval context for a user question: nearest
// catalog vectors plus fuzzy full-text matches over the user-submitted
// documents, framed by the instruction template.
type RAGService struct {
	embed      func(text string) ([]float32, error)
	store      vectorstore.Store
	searcher   search.Searcher
	topK       int
	searchSize int
}

func NewRAGService(embed func(string) ([]float32, error), store vectorstore.Store, searcher search.Searcher, topK, searchSize int) *RAGService {
	if topK <= 0 {
		topK = 3
	}
	if searchSize <= 0 {
		searchSize = 5
	}
	return &RAGService{
		embed:      embed,
		store:      store,
		searcher:   searcher,
		topK:       topK,
		searchSize: searchSize,
	}
}

// RetrieveContext returns the fully composed prompt for the given question.
// Empty result sets from either source collapse to empty context sections;
// retrieval never fails just because nothing matched.
func (s *RAGService) RetrieveContext(ctx context.Context, query string) (string, error) {
	vectorTexts, err := s.vectorContext(ctx, query)
	if err != nil {
		return "", err
	}

	docs, err := s.searcher.Search(ctx, query, s.searchSize)
	if err != nil {
		return "", fmt.Errorf("full-text search failed: %w", err)
	}

	return BuildPrompt(query, docs, vectorTexts), nil
}

// vectorContext embeds the query and collects the stored text of the
// nearest catalog matches.
func (s *RAGService) vectorContext(ctx context.Context, query string) ([]string, error) {
	embedding, err := s.embed(query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.store.Query(ctx, embedding, s.topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		text, ok := m.Metadata["text"].(string)
		if !ok {
			log.Warn().Str("id", m.ID).Msg("vector match has no text metadata, skipping")
			continue
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// BuildPrompt renders the instruction template around the two context
// blocks and the literal user question.
func BuildPrompt(query string, searchDocs []map[string]any, vectorTexts []string) string {
	serialized := make([]string, 0, len(searchDocs))
	for _, doc := range searchDocs {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			log.Warn().Err(err).Msg("failed to serialize search hit, skipping")
			continue
		}
		serialized = append(serialized, string(data))
	}

	searchBlock := strings.Join(serialized, contextSeparator)
	vectorBlock := strings.Join(vectorTexts, contextSeparator)
	return fmt.Sprintf(promptTemplate, searchBlock, vectorBlock, query)
}
