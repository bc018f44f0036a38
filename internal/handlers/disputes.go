package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/disputeflow-backend/internal/data/repos"
	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
	"github.com/yungbote/disputeflow-backend/internal/retrieval"
)

type DisputeHandler struct {
	log       *logger.Logger
	retrieval *retrieval.Service
	disputes  repos.CanonicalDisputeRepo
	links     repos.DisputeEmailLinkRepo
	documents repos.DisputeDocumentRepo
	emails    repos.EmailRepo
}

func NewDisputeHandler(
	log *logger.Logger,
	retrievalSvc *retrieval.Service,
	disputes repos.CanonicalDisputeRepo,
	links repos.DisputeEmailLinkRepo,
	documents repos.DisputeDocumentRepo,
	emails repos.EmailRepo,
) *DisputeHandler {
	return &DisputeHandler{
		log:       log.With("handler", "DisputeHandler"),
		retrieval: retrievalSvc,
		disputes:  disputes,
		links:     links,
		documents: documents,
		emails:    emails,
	}
}

// GET /api/disputes/search?q=...&top_k=5
func (h *DisputeHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}
	topK := 5
	if raw := c.Query("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be an integer between 1 and 50"})
			return
		}
		topK = n
	}

	results, err := h.retrieval.RetrieveSimilarDisputes(c.Request.Context(), query, topK)
	if err != nil {
		h.log.Error("dispute search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type emailSummary struct {
	EmailID string  `json:"email_id"`
	Sender  string  `json:"sender"`
	Subject string  `json:"subject"`
	Label   string  `json:"label"`
	Reason  string  `json:"reason"`
	Score   float64 `json:"confidence"`
}

// GET /api/disputes/:id
func (h *DisputeHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dispute id"})
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	dispute, err := h.disputes.GetByID(dbc, id)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "dispute not found"})
		return
	}
	if err != nil {
		h.log.Error("dispute load failed", "dispute_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispute load failed"})
		return
	}

	links, err := h.links.ListByDispute(dbc, id)
	if err != nil {
		h.log.Error("dispute links load failed", "dispute_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispute load failed"})
		return
	}
	emailIDs := make([]string, 0, len(links))
	for _, l := range links {
		emailIDs = append(emailIDs, l.EmailID)
	}
	linked, err := h.emails.GetByIDs(dbc, emailIDs)
	if err != nil {
		h.log.Error("dispute emails load failed", "dispute_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispute load failed"})
		return
	}

	docs, err := h.documents.ListByDispute(dbc, id)
	if err != nil {
		h.log.Error("dispute documents load failed", "dispute_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispute load failed"})
		return
	}

	emails := make([]emailSummary, 0, len(linked))
	for _, e := range linked {
		emails = append(emails, emailSummary{
			EmailID: e.ID,
			Sender:  e.Sender,
			Subject: e.Subject,
			Label:   e.Label,
			Reason:  e.ClassificationReason,
			Score:   e.Confidence,
		})
	}
	summary := ""
	if dispute.DisputeSummary != nil {
		summary = *dispute.DisputeSummary
	}
	c.JSON(http.StatusOK, gin.H{
		"dispute_id":     dispute.ID,
		"supplier_id":    dispute.SupplierID,
		"summary":        summary,
		"emails":         emails,
		"document_count": len(docs),
	})
}
