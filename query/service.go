package query

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/fabfab/ncc-advisor/embeddings"
	"github.com/fabfab/ncc-advisor/llm"
)

const (
	// similarityThreshold is the minimum cosine similarity for a passage
	// to count as evidence.
	similarityThreshold = 0.5
	// maxEvidence caps the number of passages fed to the generator.
	maxEvidence = 8
	// maxHistoryTurns bounds the prior conversation sent to the generator.
	maxHistoryTurns = 10

	noEvidenceAnswer = "I couldn't find any relevant NCC material for this building classification and question. Try rephrasing the question or checking the building classification."
)

type Service struct {
	corpus   CorpusStore
	embedder embeddings.Embedder
	llm      llm.Client
	logger   *log.Logger
}

func NewService(corpus CorpusStore, embedder embeddings.Embedder, llmClient llm.Client, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		corpus:   corpus,
		embedder: embedder,
		llm:      llmClient,
		logger:   logger,
	}
}

// Validate checks required fields and reports the first missing one using
// its wire name. No external calls happen before this passes.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Context.BuildingClass) == "" {
		return fmt.Errorf("%w: context.building_class is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Context.Jurisdiction) == "" {
		return fmt.Errorf("%w: context.state is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Context.ConstructionType) == "" {
		return fmt.Errorf("%w: context.construction_type is required", ErrInvalidRequest)
	}
	return nil
}

// Ask runs one compliance query end to end: resolve the corpus partition,
// embed the question, retrieve evidence, generate a grounded answer, and
// validate its citations against the retrieved passages. All state is
// request-scoped; the service is safe for concurrent use.
func (s *Service) Ask(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	partition := ResolvePartition(req.Context.BuildingClass)

	vector, err := s.embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	evidence, err := s.corpus.Search(ctx, vector, partition, similarityThreshold, maxEvidence)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	if len(evidence) == 0 {
		s.logger.Printf("no evidence for class %q (volume %d, class %d), returning canned answer", req.Context.BuildingClass, partition.Volume, partition.ClassID)
		return Response{Answer: noEvidenceAnswer, References: []Reference{}}, nil
	}

	sortEvidence(evidence)

	messages := make([]llm.Message, 0, maxHistoryTurns+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: groundingPrompt(req.Context, evidence)})
	messages = append(messages, historyMessages(req.History)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Question})

	answer, err := s.llm.Generate(ctx, messages)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	answer = strings.TrimSpace(answer)

	return Response{
		Answer:     answer,
		References: validateReferences(answer, evidence),
	}, nil
}

// sortEvidence orders by similarity descending with passage id ascending
// as tie-break, so results are deterministic regardless of how the
// retrieval backend orders equal scores.
func sortEvidence(evidence []ScoredPassage) {
	sort.SliceStable(evidence, func(i, j int) bool {
		if evidence[i].Similarity != evidence[j].Similarity {
			return evidence[i].Similarity > evidence[j].Similarity
		}
		return bytes.Compare(evidence[i].Passage.ID[:], evidence[j].Passage.ID[:]) < 0
	})
}

// historyMessages bounds prior turns to the most recent maxHistoryTurns
// and translates caller roles into the generator's vocabulary. Unknown
// roles are treated as user turns.
func historyMessages(history []ChatTurn) []llm.Message {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return messages
}
