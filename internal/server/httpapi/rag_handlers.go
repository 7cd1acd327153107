package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tranqh/studymate/internal/server/rag"
	"github.com/tranqh/studymate/internal/textx"
)

const (
	chunkSize    = 500
	chunkOverlap = 50
	// stay under the index's per-request record limit of 96
	upsertBatchSize = 90

	searchTopK = 15
)

type ingestRequest struct {
	UserID      string `json:"userId"`
	DocumentID  string `json:"documentId"`
	Title       string `json:"title"`
	CourseID    string `json:"courseId"`
	CourseTitle string `json:"courseTitle"`
	Document    string `json:"document"`
}

// handleIngest cleans and chunks a document, then upserts the chunks into
// the caller's namespace in batches.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.DocumentID == "" || req.Document == "" {
		writeError(w, http.StatusBadRequest, "userId, documentId and document are required")
		return
	}

	chunks := textx.SplitText(textx.CleanDocument(req.Document), chunkSize, chunkOverlap)

	records := make([]rag.Record, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, rag.Record{
			ID:          fmt.Sprintf("%s-%d", req.DocumentID, i),
			Text:        chunk,
			DocumentID:  req.DocumentID,
			Title:       req.Title,
			CourseID:    req.CourseID,
			CourseTitle: req.CourseTitle,
		})
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		if err := s.vectorIndex.Upsert(r.Context(), req.UserID, records[start:end]); err != nil {
			s.logger.Error(r.Context(), "vector upsert failed", "error", err)
			writeError(w, http.StatusBadGateway, "Vector index unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "done",
		"chunks_processed": len(records),
	})
}

type documentRef struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	DocumentID string  `json:"documentId"`
	Score      float64 `json:"score"`
}

// completionResponse mirrors the provider's response with retrieved source
// documents attached to the answering message.
type completionResponse struct {
	ID      string                     `json:"id"`
	Object  string                     `json:"object"`
	Created int64                      `json:"created"`
	Model   string                     `json:"model"`
	Choices []completionChoiceWithDocs `json:"choices"`
	Usage   rag.Usage                  `json:"usage"`
}

type completionChoiceWithDocs struct {
	Index        int             `json:"index"`
	Message      messageWithDocs `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type messageWithDocs struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	Documents []documentRef `json:"documents,omitempty"`
}

// attachDocuments converts a completion to the response shape, attaching the
// retrieved hits to the last choice's message.
func attachDocuments(completion *rag.Completion, hits []rag.Hit) completionResponse {

	resp := completionResponse{
		ID:      completion.ID,
		Object:  completion.Object,
		Created: completion.Created,
		Model:   completion.Model,
		Choices: make([]completionChoiceWithDocs, len(completion.Choices)),
		Usage:   completion.Usage,
	}

	for i, choice := range completion.Choices {
		resp.Choices[i] = completionChoiceWithDocs{
			Index:        choice.Index,
			Message:      messageWithDocs{Role: choice.Message.Role, Content: choice.Message.Content},
			FinishReason: choice.FinishReason,
		}
	}

	if len(resp.Choices) > 0 {
		docs := make([]documentRef, 0, len(hits))
		for _, hit := range hits {
			docs = append(docs, documentRef{
				ID:         hit.ID,
				Text:       hit.Text,
				DocumentID: hit.DocumentID,
				Score:      hit.Score,
			})
		}
		resp.Choices[len(resp.Choices)-1].Message.Documents = docs
	}

	return resp
}

// groundedPrompt wraps a question and the retrieved passages into the
// instruction the model answers from.
func groundedPrompt(question string, hits []rag.Hit) string {

	var b strings.Builder
	b.WriteString("### Task\n")
	b.WriteString("Answer the question below using the reference passages. ")
	b.WriteString("If the passages are insufficient, answer from your own knowledge and say so explicitly.\n\n")
	fmt.Fprintf(&b, "**Question:** %s\n\n", question)
	b.WriteString("### Reference passages\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "**Passage %d (Document title: %s):**\n%s\n", i+1, hit.Title, hit.Text)
		b.WriteString("---\n")
	}
	b.WriteString("### Answer guidelines\n")
	b.WriteString("- Format the answer in Markdown.\n")
	b.WriteString("- Cite the document title for every fact taken from a passage.\n")
	b.WriteString("- If the answer cannot be derived from the passages, start with: `Note: not found in the provided passages, answered from background knowledge.`\n")
	return b.String()
}

func plainPrompt(question string) string {

	var b strings.Builder
	b.WriteString("### Task\n")
	fmt.Fprintf(&b, "Answer the following question: %s\n\n", question)
	b.WriteString("### Answer guidelines\n")
	b.WriteString("- Format the answer in Markdown.\n")
	b.WriteString("- Use a Markdown table when the content compares or classifies things.\n")
	return b.String()
}

type questionRequest struct {
	UserID string `json:"userId"`
	Query  string `json:"query"`
}

// handleQuestion answers a single question grounded in the caller's
// ingested documents.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "userId and query are required")
		return
	}

	hits, err := s.vectorIndex.Search(r.Context(), req.UserID, req.Query, searchTopK, "")
	if err != nil {
		s.logger.Error(r.Context(), "vector search failed", "error", err)
		writeError(w, http.StatusBadGateway, "Vector index unavailable")
		return
	}

	completion, err := s.chat.Complete(r.Context(), rag.CompletionRequest{
		Model: s.chatModel,
		Messages: []rag.Message{
			{Role: "user", Content: groundedPrompt(req.Query, hits)},
		},
	})
	if err != nil {
		s.logger.Error(r.Context(), "chat completion failed", "error", err)
		writeError(w, http.StatusBadGateway, "Chat provider unavailable")
		return
	}

	writeJSON(w, http.StatusOK, attachDocuments(completion, hits))
}

type chatCompletionRequest struct {
	UserID         string        `json:"userId"`
	Messages       []rag.Message `json:"messages"`
	Model          string        `json:"model"`
	IsUseKnowledge bool          `json:"isUseKnowledge"`
	CourseID       string        `json:"courseId"`
}

// handleChatCompletions runs a multi-turn conversation, optionally grounded
// in the caller's documents. Without grounding the last user message is
// answered directly; with grounding every prior user turn contributes to
// the retrieval query.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {

	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "userId and messages are required")
		return
	}

	model := req.Model
	if model == "" {
		model = s.chatModel
	}

	lastMessage := req.Messages[len(req.Messages)-1]
	history := req.Messages[:len(req.Messages)-1]

	if !req.IsUseKnowledge {
		temperature := 0.5
		topP := 1.0
		completion, err := s.chat.Complete(r.Context(), rag.CompletionRequest{
			Model:       model,
			Messages:    append(append([]rag.Message{}, history...), rag.Message{Role: "user", Content: plainPrompt(lastMessage.Content)}),
			Temperature: &temperature,
			MaxTokens:   1024,
			TopP:        &topP,
		})
		if err != nil {
			s.logger.Error(r.Context(), "chat completion failed", "error", err)
			writeError(w, http.StatusBadGateway, "Chat provider unavailable")
			return
		}
		writeJSON(w, http.StatusOK, completion)
		return
	}

	// every user turn so far feeds the retrieval query
	var userTurns []string
	for _, m := range req.Messages {
		if m.Role == "user" {
			userTurns = append(userTurns, m.Content)
		}
	}
	query := textx.CleanQuery(strings.Join(userTurns, " "))

	hits, err := s.vectorIndex.Search(r.Context(), req.UserID, query, searchTopK, req.CourseID)
	if err != nil {
		s.logger.Error(r.Context(), "vector search failed", "error", err)
		writeError(w, http.StatusBadGateway, "Vector index unavailable")
		return
	}

	completion, err := s.chat.Complete(r.Context(), rag.CompletionRequest{
		Model:    model,
		Messages: append(append([]rag.Message{}, req.Messages...), rag.Message{Role: "user", Content: groundedPrompt(lastMessage.Content, hits)}),
	})
	if err != nil {
		s.logger.Error(r.Context(), "chat completion failed", "error", err)
		writeError(w, http.StatusBadGateway, "Chat provider unavailable")
		return
	}

	writeJSON(w, http.StatusOK, attachDocuments(completion, hits))
}

type deleteDocumentRequest struct {
	UserID     string `json:"userId"`
	DocumentID string `json:"documentId"`
}

// handleDeleteDocument removes every chunk of a document from the caller's
// namespace.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {

	var req deleteDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "userId and documentId are required")
		return
	}

	ids, err := s.vectorIndex.List(r.Context(), req.UserID, req.DocumentID)
	if err != nil {
		s.logger.Error(r.Context(), "vector list failed", "error", err)
		writeError(w, http.StatusBadGateway, "Vector index unavailable")
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusNotFound, "No vectors found for this documentId")
		return
	}

	if err := s.vectorIndex.Delete(r.Context(), req.UserID, ids); err != nil {
		s.logger.Error(r.Context(), "vector delete failed", "error", err)
		writeError(w, http.StatusBadGateway, "Vector index unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted_ids": ids})
}
