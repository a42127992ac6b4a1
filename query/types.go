// Package query implements the compliance-query pipeline: classification
// resolution, evidence retrieval, grounded generation, and citation
// validation against the retrieved evidence set.
package query

import "github.com/google/uuid"

// ProjectContext carries the structured building-project facts supplied
// with every question. All three fields are required; value-space
// validation beyond non-emptiness belongs to the caller.
type ProjectContext struct {
	BuildingClass    string
	Jurisdiction     string
	ConstructionType string
}

type ChatTurn struct {
	Role    string
	Content string
}

// Request is a single compliance question with its project context and
// optional prior conversation turns, oldest first.
type Request struct {
	Question string
	Context  ProjectContext
	History  []ChatTurn
}

// Partition scopes retrieval to the corpus volume and classification id
// relevant to a building class. Derived, never stored.
type Partition struct {
	Volume  int
	ClassID int
}

// Passage is a retrievable unit of the regulatory corpus. Owned by the
// corpus store; read-only here.
type Passage struct {
	ID                uuid.UUID
	Section           string
	Title             string
	Part              string
	Volume            int
	Content           string
	ApplicableClasses []int32
	StateSpecific     bool
}

// ScoredPassage pairs a retrieved passage with its cosine similarity to
// the query embedding.
type ScoredPassage struct {
	Passage    Passage
	Similarity float64
}

// Reference is a validated citation. It is always drawn from a passage
// retrieved for the current request, never from generated text alone.
type Reference struct {
	Section string
	Title   string
}

type Response struct {
	Answer     string
	References []Reference
}
